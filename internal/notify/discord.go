// Package notify pushes scan outcomes to a Discord webhook through shoutrrr.
package notify

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/ugcscan/ugcscan-go/internal/flagstore"
	"github.com/ugcscan/ugcscan-go/internal/logging"
	"github.com/ugcscan/ugcscan-go/internal/scanner"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("notify")
	})
	return serviceLogger
}

// maxMessageLen keeps the message under Discord's 2000 character limit with
// room for the truncation marker.
const maxMessageLen = 1900

// Discord sends one message per run listing the flagged items.
type Discord struct {
	sender *router.ServiceRouter
}

// NewDiscord builds a notifier for the webhook URL. Both the plain
// https://discord.com/api/webhooks/... form and shoutrrr's discord:// form
// are accepted.
func NewDiscord(webhookURL string) (*Discord, error) {
	serviceURL, err := toServiceURL(webhookURL)
	if err != nil {
		return nil, err
	}
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("creating notification sender: %w", err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &Discord{sender: sender}, nil
}

// Send pushes the run summary and the flagged item list as one message.
func (d *Discord) Send(summary *scanner.Summary, items []flagstore.FlaggedItem) error {
	body := buildMessage(summary, items)
	params := stypes.Params{}
	params.SetTitle("UGCScan results")

	errs := d.sender.Send(body, &params)
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("sending notification: %w", err)
		}
	}
	getLogger().Debug("notification sent", "run_id", summary.RunID, "items", len(items))
	return nil
}

// buildMessage renders the flagged items as numbered lines, truncated under
// the Discord message limit.
func buildMessage(summary *scanner.Summary, items []flagstore.FlaggedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scan %s flagged %d of %d items (keywords: %s)\n",
		summary.RunID, summary.Flagged, summary.Scanned, strings.Join(summary.Keywords, ", "))

	for i := range items {
		price := "Offsale"
		if items[i].Price != nil {
			price = fmt.Sprintf("%d", *items[i].Price)
		}
		line := fmt.Sprintf("%d. %s by %s (%s)\n%s\n",
			i+1, items[i].Name, items[i].CreatorName, price, items[i].Thumbnail)
		if b.Len()+len(line) > maxMessageLen {
			b.WriteString("... (truncated)")
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

// toServiceURL converts a Discord webhook URL into shoutrrr's
// discord://token@webhookid form. A URL already in a shoutrrr scheme is
// passed through.
func toServiceURL(webhookURL string) (string, error) {
	if strings.HasPrefix(webhookURL, "discord://") {
		return webhookURL, nil
	}
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", fmt.Errorf("parsing webhook URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Expected path: api/webhooks/<id>/<token>
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "webhooks" {
		return "", fmt.Errorf("unrecognized Discord webhook URL")
	}
	return fmt.Sprintf("discord://%s@%s", parts[3], parts[2]), nil
}
