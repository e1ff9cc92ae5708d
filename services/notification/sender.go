package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const senderName = "Sarphotar™"

//go:generate mockgen -source=sender.go -package notification -destination sender_mock.go Sender
type Sender interface {
	Send(c context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
	Timeout  time.Duration
}

type smtpSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{
		cfg: cfg,
	}
}

// Send delivers msg over one SMTP session, upgrading to TLS and authenticating when the server offers it.
// Both the dial and the whole session are bounded by the configured timeout.
func (s *smtpSender) Send(c context.Context, msg Message) error {
	raw, err := buildMessage(s.cfg.From, msg, time.Now())
	if err != nil {
		return err
	}

	c, cancel := context.WithTimeout(c, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(c, "tcp", addr)
	if err != nil {
		return fmt.Errorf("error connecting to %s: %s", addr, err)
	}
	if deadline, ok := c.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("error starting smtp session with %s: %s", addr, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		err = client.StartTLS(&tls.Config{ServerName: s.cfg.Host})
		if err != nil {
			return fmt.Errorf("error starting tls: %s", err)
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		err = client.Auth(smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.Host))
		if err != nil {
			return fmt.Errorf("error authenticating as %s: %s", s.cfg.From, err)
		}
	}

	err = client.Mail(s.cfg.From)
	if err != nil {
		return fmt.Errorf("error setting sender: %s", err)
	}
	err = client.Rcpt(msg.To)
	if err != nil {
		return fmt.Errorf("error setting recipient: %s", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("error opening data: %s", err)
	}
	_, err = w.Write(raw)
	if err != nil {
		return fmt.Errorf("error writing message: %s", err)
	}
	err = w.Close()
	if err != nil {
		return fmt.Errorf("error completing message: %s", err)
	}

	return client.Quit()
}

func buildMessage(from string, msg Message, now time.Time) ([]byte, error) {
	fromAddr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender %q: %s", from, err)
	}
	toAddr, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %s", err)
	}
	fromAddr.Name = senderName

	buf := bytes.Buffer{}
	header := func(name, value string) {
		buf.WriteString(name + ": " + value + "\r\n")
	}
	header("From", fromAddr.String())
	header("To", toAddr.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	if msg.MessageID != "" {
		header("Message-ID", fmt.Sprintf("<%s@%s>", msg.MessageID, domainOf(fromAddr.Address)))
	}
	header("MIME-Version", "1.0")
	header("Content-Type", "text/html; charset=UTF-8")
	header("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	_, err = qp.Write([]byte(msg.HTML))
	if err != nil {
		return nil, fmt.Errorf("error encoding body: %s", err)
	}
	err = qp.Close()
	if err != nil {
		return nil, fmt.Errorf("error encoding body: %s", err)
	}

	return buf.Bytes(), nil
}

func domainOf(address string) string {
	_, domain, found := strings.Cut(address, "@")
	if !found {
		return "localhost"
	}
	return domain
}
