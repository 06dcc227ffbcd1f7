package notifier

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mightyoctopus/worthbrain/internal/domain"
	"github.com/mightyoctopus/worthbrain/pkg/errcodes"
)

const (
	pushoverEndpoint = "https://api.pushover.net/1/messages.json"
	pushoverTimeout  = 5 * time.Second

	// Cash register sound fits a deal alert.
	pushoverSound = "cashregister"
)

// Pushover delivers deal alerts as push notifications.
type Pushover struct {
	userKey    string
	appToken   string
	endpoint   string
	httpClient *http.Client
}

func NewPushover(userKey, appToken string) *Pushover {
	return &Pushover{
		userKey:    userKey,
		appToken:   appToken,
		endpoint:   pushoverEndpoint,
		httpClient: &http.Client{Timeout: pushoverTimeout},
	}
}

func (p *Pushover) WithEndpoint(endpoint string) *Pushover {
	p.endpoint = endpoint
	return p
}

func (p *Pushover) Send(ctx context.Context, message string) error {
	form := url.Values{
		"user":    {p.userKey},
		"token":   {p.appToken},
		"message": {message},
		"sound":   {pushoverSound},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return domain.WrapError(err, errcodes.DeliveryFailure, "build pushover request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(err, errcodes.DeliveryFailure, "pushover send")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewError(errcodes.DeliveryFailure,
			"pushover replied with status "+resp.Status)
	}

	logger(ctx).Info("pushover alert delivered")

	return nil
}
