package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"project-pulse/config"
	"project-pulse/internals/modules/alert"
	"project-pulse/pkg/apperror"
)

const smtpTimeout = 10 * time.Second

type sendMailFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSink delivers critical alerts and the daily digest over SMTP.
type EmailSink struct {
	cfg      config.EmailConfig
	service  string
	sendMail sendMailFunc
}

func NewEmailSink(cfg config.EmailConfig, service string) *EmailSink {
	return &EmailSink{cfg: cfg, service: service, sendMail: sendMailContext}
}

func (e *EmailSink) Name() string { return "email" }

// ReceivesWarnings is false: the inbox only gets critical alerts.
func (e *EmailSink) ReceivesWarnings() bool { return false }

func (e *EmailSink) Send(ctx context.Context, a alert.Alert) error {
	return e.deliver(ctx, subject(e.service, a), plainText(a))
}

func (e *EmailSink) SendDigest(ctx context.Context, d alert.Digest) error {
	subj := fmt.Sprintf("[%s] Daily alert digest (%d)", e.service, d.Total)
	return e.deliver(ctx, subj, digestText(d))
}

func (e *EmailSink) deliver(ctx context.Context, subj, text string) error {
	const op = "notify.email.send"
	if err := ctx.Err(); err != nil {
		return apperror.New(apperror.Timeout, op, err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		e.cfg.From,
		strings.Join(e.cfg.To, ","),
		subj,
		time.Now().Format(time.RFC1123Z),
		strings.ReplaceAll(text, "\n", "\r\n"),
	)

	addr := net.JoinHostPort(e.cfg.Host, fmt.Sprint(e.cfg.Port))
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}

	if err := e.sendMail(ctx, addr, auth, e.cfg.From, e.cfg.To, []byte(msg)); err != nil {
		kind := apperror.Delivery
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			kind = apperror.Timeout
		}
		return apperror.New(kind, op, fmt.Errorf("email send: %w", err))
	}
	return nil
}

// sendMailContext is smtp.SendMail with the whole exchange bounded by the
// ctx deadline, or smtpTimeout when ctx has none.
func sendMailContext(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: smtpTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(smtpTimeout)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if a != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
