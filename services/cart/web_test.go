package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartWebService(t *testing.T) {

	t.Run("Empty cart", func(t *testing.T) {
		// setup
		router := setup()

		// when
		response := do(t, router, http.MethodGet, "/cart", "", nil)

		// then
		assert.Equal(t, 200, response.Code)
		view := parseView(t, response)
		assert.Empty(t, view.Lines)
		assert.Equal(t, "0.00", view.Total)
		assert.Equal(t, 0, view.Count)
	})

	t.Run("Add item twice via cookie round trip", func(t *testing.T) {
		// setup
		router := setup()

		// when
		first := do(t, router, http.MethodPost, "/cart/items", "key=novelec-pistol", nil)
		second := do(t, router, http.MethodPost, "/cart/items", "key=novelec-pistol", first.Result().Cookies())

		// then
		assert.Equal(t, 200, second.Code)
		view := parseView(t, second)
		assert.Len(t, view.Lines, 1)
		assert.Equal(t, 2, view.Lines[0].Quantity)
		assert.Equal(t, "39.98", view.Total)
		assert.Equal(t, 2, view.Count)
	})

	t.Run("Unknown product", func(t *testing.T) {
		// setup
		router := setup()

		// when
		response := do(t, router, http.MethodPost, "/cart/items", "key=water-balloon", nil)

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Missing key", func(t *testing.T) {
		// setup
		router := setup()

		// when
		response := do(t, router, http.MethodPost, "/cart/items", "", nil)

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Remove item", func(t *testing.T) {
		// setup
		router := setup()
		added := do(t, router, http.MethodPost, "/cart/items", "key=ciovelec-rifle", nil)

		// when
		response := do(t, router, http.MethodDelete, "/cart/items/ciovelec-rifle", "", added.Result().Cookies())

		// then
		assert.Equal(t, 200, response.Code)
		assert.Empty(t, parseView(t, response).Lines)
	})

	t.Run("Clear expires cookie", func(t *testing.T) {
		// setup
		router := setup()
		added := do(t, router, http.MethodPost, "/cart/items", "key=ciovelec-rifle", nil)

		// when
		response := do(t, router, http.MethodDelete, "/cart", "", added.Result().Cookies())

		// then
		assert.Equal(t, 200, response.Code)
		cookies := response.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieName, cookies[0].Name)
		assert.True(t, cookies[0].MaxAge < 0)
	})

	t.Run("Corrupted cookie is treated as empty", func(t *testing.T) {
		// setup
		router := setup()

		// when
		response := do(t, router, http.MethodGet, "/cart", "", []*http.Cookie{{Name: CookieName, Value: "garbage!!"}})

		// then
		assert.Equal(t, 200, response.Code)
		assert.Empty(t, parseView(t, response).Lines)
	})
}

func setup() *mux.Router {
	router := mux.NewRouter()
	NewWebService().RegisterEndpoints(context.TODO(), router)
	return router
}

func do(t *testing.T, router *mux.Router, method string, path string, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	request, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Host = "localhost:8888"
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func parseView(t *testing.T, response *httptest.ResponseRecorder) View {
	view := View{}
	err := json.Unmarshal(response.Body.Bytes(), &view)
	require.NoError(t, err)
	return view
}
