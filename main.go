package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/MarcGrol/storefront/lib/myconfig"
	"github.com/MarcGrol/storefront/lib/myevents"
	"github.com/MarcGrol/storefront/lib/mypublisher"
	"github.com/MarcGrol/storefront/lib/mypubsub"
	"github.com/MarcGrol/storefront/lib/myqueue"
	"github.com/MarcGrol/storefront/lib/mystore"
	"github.com/MarcGrol/storefront/lib/mystripe"
	"github.com/MarcGrol/storefront/lib/mytime"
	"github.com/MarcGrol/storefront/lib/myuuid"
	"github.com/MarcGrol/storefront/services/cart"
	"github.com/MarcGrol/storefront/services/catalog"
	"github.com/MarcGrol/storefront/services/checkout"
	"github.com/MarcGrol/storefront/services/fulfillment"
	"github.com/MarcGrol/storefront/services/notification"
	"github.com/MarcGrol/storefront/services/orderapi"
	"github.com/MarcGrol/storefront/services/orderevents"
	"github.com/MarcGrol/storefront/services/warmup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	c := context.Background()

	cfg, err := myconfig.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %s", err)
	}

	router := mux.NewRouter()

	publisher, publisherCleanup, err := createPublisher(c, router)
	if err != nil {
		log.Fatalf("Error creating publisher: %s", err)
	}
	defer publisherCleanup()

	err = publisher.CreateTopic(c, orderevents.TopicName)
	if err != nil {
		log.Fatalf("Error creating topic %s: %s", orderevents.TopicName, err)
	}

	orderStore, orderStoreCleanup, err := mystore.New[orderapi.OrderRecord](c)
	if err != nil {
		log.Fatalf("Error creating order store: %s", err)
	}
	defer orderStoreCleanup()

	warmup.NewService(orderStore).RegisterEndpoints(c, router)

	ledger, ledgerCleanup, err := createLedger(c, cfg)
	if err != nil {
		log.Fatalf("Error creating event ledger: %s", err)
	}
	defer ledgerCleanup()

	nower := mytime.RealNower{}
	stripeClient := mystripe.NewClient(cfg.StripeSecretKey, cfg.GatewayTimeout)

	dispatcher := notification.NewDispatcher(notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		From:     cfg.MailFrom,
		Password: cfg.MailAppPassword,
		Timeout:  cfg.MailTimeout,
	}), myuuid.RealUUIDer{}, cfg.MailTimeout)

	catalog.NewWebService(cfg.BootstrapToken, catalog.NewAdmin(stripeClient)).RegisterEndpoints(c, router)

	cart.NewWebService().RegisterEndpoints(c, router)

	checkout.NewWebService(checkout.Config{
		SiteURL:                  cfg.SiteURL,
		OrderPrefix:              cfg.OrderPrefix,
		AllowedShippingCountries: cfg.AllowedShippingCountries,
	}, checkout.NewPayer(stripeClient), nower, orderStore, publisher).RegisterEndpoints(c, router)

	fulfillment.NewWebService(fulfillment.Config{
		WebhookSecret:    cfg.StripeWebhookSecret,
		WebhookTolerance: cfg.WebhookTolerance,
		OrderPrefix:      cfg.OrderPrefix,
	}, ledger, nower, orderStore, publisher, dispatcher).RegisterEndpoints(c, router)

	notification.NewWebService(cfg.BootstrapToken, cfg.MailFrom, dispatcher).RegisterEndpoints(c, router)

	startWebServerBlocking(cfg.Port, router, dispatcher)
}

// createPublisher also registers the endpoint the queue calls to push outbox envelopes.
func createPublisher(c context.Context, router *mux.Router) (mypublisher.Publisher, func(), error) {
	outbox, outboxCleanup, err := mystore.New[myevents.EventEnvelope](c)
	if err != nil {
		return nil, func() {}, fmt.Errorf("error creating outbox: %s", err)
	}

	pubsub, pubsubCleanup, err := mypubsub.New(c)
	if err != nil {
		outboxCleanup()
		return nil, func() {}, fmt.Errorf("error creating pubsub: %s", err)
	}

	queue, queueCleanup, err := myqueue.New(c)
	if err != nil {
		pubsubCleanup()
		outboxCleanup()
		return nil, func() {}, fmt.Errorf("error creating queue: %s", err)
	}

	publisher := mypublisher.New(outbox, pubsub, queue, mytime.RealNower{})
	publisher.RegisterEndpoints(c, router)

	return publisher, func() {
		queueCleanup()
		pubsubCleanup()
		outboxCleanup()
	}, nil
}

// createLedger shares processed events through redis when configured, the document store otherwise.
func createLedger(c context.Context, cfg myconfig.Config) (fulfillment.EventLedger, func(), error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		err := client.Ping(c).Err()
		if err != nil {
			client.Close()
			return nil, func() {}, fmt.Errorf("error connecting to redis at %s: %s", cfg.RedisAddr, err)
		}
		return fulfillment.NewRedisLedger(client), func() {
			client.Close()
		}, nil
	}

	store, cleanup, err := mystore.New[fulfillment.ProcessedEvent](c)
	if err != nil {
		return nil, func() {}, err
	}
	return fulfillment.NewStoreLedger(store, mytime.RealNower{}), cleanup, nil
}

func startWebServerBlocking(port string, router *mux.Router, dispatcher *notification.Dispatcher) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting webserver on port %s (try http://localhost:%s)", port, port)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting webserver on port %s: %s", port, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Printf("Received %s, shutting down", sig)
	c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(c)
	if err != nil {
		log.Printf("Error shutting down webserver: %s", err)
	}

	err = dispatcher.Shutdown(c)
	if err != nil {
		log.Printf("Error draining notifications: %s", err)
	}
}
