// Package notify delivers rendered digests to recipients over SMTP.
package notify

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/config"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
)

const dialTimeout = 30 * time.Second

// Renderer makes the email parts of a digest
type Renderer interface {
	HTML(d domain.Digest) (string, error)
	Text(d domain.Digest) string
}

// sender sends prepared messages over a single session
type sender interface {
	Send(from, to string, msg []byte) error
	Close() error
}

// Mailer sends one message per recipient, so recipients never see each other
type Mailer struct {
	cfg      config.SMTPConfig
	renderer Renderer
	subject  func(d domain.Digest) string
	now      func() time.Time
	dial     func(ctx context.Context) (sender, error)
}

// NewMailer makes a mailer for the given SMTP settings
func NewMailer(cfg config.SMTPConfig, renderer Renderer, subject func(d domain.Digest) string) *Mailer {
	m := &Mailer{cfg: cfg, renderer: renderer, subject: subject, now: time.Now}
	m.dial = m.dialSMTP
	return m
}

// Deliver renders the digest and sends it to every recipient. Failures for single recipients
// don't stop delivery to the rest and are returned together.
func (m *Mailer) Deliver(ctx context.Context, d domain.Digest) error {
	recipients := m.Recipients()
	if len(recipients) == 0 {
		return errors.New("no recipients configured")
	}

	html, err := m.renderer.HTML(d)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	text := m.renderer.Text(d)
	subject := m.subject(d)

	conn, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect to smtp server: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("[WARN] failed to close smtp session: %v", err)
		}
	}()

	var errs []error
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg, err := m.buildMessage(to, subject, html, text)
		if err != nil {
			errs = append(errs, fmt.Errorf("build message for %s: %w", to, err))
			continue
		}
		if err := conn.Send(m.cfg.From, to, msg); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		log.Printf("[DEBUG] digest sent to %s", to)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Printf("[INFO] digest %s delivered to %d recipients", d.Date, len(recipients))
	return nil
}

// Recipients returns addresses from smtp.to followed by the mailing list file,
// deduplicated case-insensitively with the first spelling kept
func (m *Mailer) Recipients() []string {
	var all []string
	for _, addr := range strings.Split(m.cfg.To, ",") {
		all = append(all, strings.TrimSpace(addr))
	}
	all = append(all, m.mailingList()...)

	seen := map[string]bool{}
	res := make([]string, 0, len(all))
	for _, addr := range all {
		key := strings.ToLower(addr)
		if addr == "" || seen[key] {
			continue
		}
		seen[key] = true
		res = append(res, addr)
	}
	return res
}

// mailingList reads one address per line, skipping blank lines and # comments.
// A missing file means no extra recipients.
func (m *Mailer) mailingList() []string {
	if m.cfg.MailingList == "" {
		return nil
	}
	data, err := os.ReadFile(m.cfg.MailingList)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[WARN] can't read mailing list %s: %v", m.cfg.MailingList, err)
		}
		return nil
	}

	var res []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res = append(res, line)
	}
	return res
}

// buildMessage makes a multipart/alternative message with plain text and html parts
func (m *Mailer) buildMessage(to, subject, html, text string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create part: %w", err)
		}
		qw := quotedprintable.NewWriter(pw)
		if _, err := qw.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write part: %w", err)
		}
		if err := qw.Close(); err != nil {
			return nil, fmt.Errorf("close part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	headers := []struct{ name, value string }{
		{"From", m.cfg.From},
		{"To", to},
		{"Subject", mime.QEncoding.Encode("utf-8", subject)},
		{"Date", m.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		msg.WriteString(h.name + ": " + h.value + "\r\n")
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// dialSMTP connects, upgrades with STARTTLS when offered and authenticates when a user is set
func (m *Mailer) dialSMTP(ctx context.Context) (sender, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("start smtp session: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}
	return &smtpSender{client: client}, nil
}

type smtpSender struct {
	client *smtp.Client
}

func (s *smtpSender) Send(from, to string, msg []byte) error {
	if err := s.client.Mail(from); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := s.client.Rcpt(to); err != nil {
		_ = s.client.Reset()
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := s.client.Data()
	if err != nil {
		_ = s.client.Reset()
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return nil
}

func (s *smtpSender) Close() error {
	return s.client.Quit()
}
