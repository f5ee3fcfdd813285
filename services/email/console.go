package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
)

// base64 body lines are capped at 76 characters (RFC 2045)
const mimeLineLen = 76

var (
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        io.Writer // nil disables output
}

var _ core.EmailService = (*consoleService)(nil)

// NewConsoleService writes every message to stdout as a MIME document instead of sending it.
func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		from:       conf.DefaultFromEmail(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        os.Stdout,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if err := msg.Render(); err != nil {
		log.Printf("%+v", errors.Wrap(err, "rendering email"))
		return
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return
	}
	if svc.out != nil {
		if err := svc.write(svc.out, *msg, time.Now()); err != nil {
			log.Printf("%+v", errors.Wrap(err, "writing email"))
			return
		}
	}
	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

// write renders `msg` as multipart/mixed (with attachments) or multipart/alternative.
func (svc consoleService) write(out io.Writer, msg core.EmailMessage, date time.Time) error {
	body := new(strings.Builder)
	header := func(key, value string) {
		if value != "" {
			_, _ = fmt.Fprintf(body, "%s: %s\r\n", key, value)
		}
	}
	header("From", svc.from.String())
	header("MIME-Version", "1.0")
	header("Date", date.Format(time.RFC1123Z))
	header("Subject", svc.subjPrefix+msg.Subject)
	header("To", joinAddresses(msg.To))
	header("Cc", joinAddresses(msg.Cc))
	header("Bcc", joinAddresses(msg.Bcc))

	if msg.HasAttachments() {
		mixedW := multipart.NewWriter(body)
		header("Content-Type", "multipart/mixed; boundary="+mixedW.Boundary())
		_, _ = fmt.Fprint(body, "\r\n")

		// the alternative part is nested in the mixed one
		boundary := multipart.NewWriter(nil).Boundary()
		part, err := mixedW.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + boundary}})
		if err != nil {
			return errors.Wrap(err, "creating multipart/alternative part")
		}
		altW := multipart.NewWriter(part)
		if err := altW.SetBoundary(boundary); err != nil {
			return errors.Wrap(err, "setting multipart/alternative boundary")
		}
		if err := writeAlternative(altW, msg); err != nil {
			return err
		}
		for _, at := range msg.Attachments {
			part, err := mixedW.CreatePart(textproto.MIMEHeader{
				"Content-Type":              {at.ContentType},
				"Content-Transfer-Encoding": {"base64"},
				"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", at.Filename)},
			})
			if err != nil {
				return errors.Wrapf(err, "creating %s part", at.ContentType)
			}
			if err := writeWrapped(part, at.Content.String(), mimeLineLen); err != nil {
				return errors.Wrapf(err, "writing attachment %s", at.Filename)
			}
		}
		if err := mixedW.Close(); err != nil {
			return errors.Wrap(err, "closing multipart/mixed")
		}
	} else {
		altW := multipart.NewWriter(body)
		header("Content-Type", "multipart/alternative; boundary="+altW.Boundary())
		_, _ = fmt.Fprint(body, "\r\n")
		if err := writeAlternative(altW, msg); err != nil {
			return err
		}
	}

	_, err := io.WriteString(out, body.String()+"\n")
	return errors.Wrap(err, "writing output")
}

func writeAlternative(w *multipart.Writer, msg core.EmailMessage) error {
	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return errors.Wrap(err, "creating text/plain part")
	}
	_, _ = fmt.Fprintf(part, "%s\r\n", msg.TextContent)

	if msg.HTMLContent != "" {
		part, err = w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
		if err != nil {
			return errors.Wrap(err, "creating text/html part")
		}
		_, _ = fmt.Fprintf(part, "%s\r\n", msg.HTMLContent)
	}
	return errors.Wrap(w.Close(), "closing multipart/alternative")
}

func writeWrapped(w io.Writer, s string, width int) error {
	for len(s) > 0 {
		n := width
		if len(s) < n {
			n = len(s)
		}
		if _, err := io.WriteString(w, s[:n]+"\r\n"); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}

func joinAddresses(addrs []mail.Address) string {
	toJoin := make([]string, 0, len(addrs))
	for _, a := range addrs {
		toJoin = append(toJoin, a.String())
	}
	return strings.Join(toJoin, ", ")
}

type consoleServiceMock struct {
	consoleService
}

// NewConsoleServiceMock records messages in SentMessages synchronously, without output.
func NewConsoleServiceMock(conf *core.Config) core.EmailService {
	return &consoleServiceMock{
		consoleService: consoleService{
			from:       conf.DefaultFromEmail(),
			subjPrefix: "[" + conf.AppName + "] ",
		},
	}
}

// ResetSentMessages clears the messages recorded so far.
func ResetSentMessages() {
	mu.Lock()
	SentMessages = make([]core.EmailMessage, 0)
	mu.Unlock()
}

func (svc *consoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		// run synchronously
		svc.sendMessage(msg)
	}
}
