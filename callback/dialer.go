package callback

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

// ProviderConfig holds the outbound dialing credentials.
type ProviderConfig struct {
	AccountSID string `yaml:"account_sid" validate:"required"`
	AuthToken  string `yaml:"auth_token" validate:"required"`
	FromNumber string `yaml:"from_number" validate:"required"`
	// AnswerURL is fetched by the provider when the called party picks up;
	// it should resume a flow that bridges them to an agent.
	AnswerURL string `yaml:"answer_url" validate:"required,url"`
}

// ProviderDialer places calls through the provider's REST API. SignalWire
// exposes the same API surface, so the one client covers both.
type ProviderDialer struct {
	client *twilio.RestClient
	from   string
	answer string
}

func NewProviderDialer(cfg ProviderConfig) *ProviderDialer {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &ProviderDialer{client: client, from: cfg.FromNumber, answer: cfg.AnswerURL}
}

func (d *ProviderDialer) Dial(_ context.Context, _, number string) error {
	params := &api.CreateCallParams{}
	params.SetTo(number)
	params.SetFrom(d.from)
	params.SetUrl(d.answer)
	params.SetMethod("POST")

	if _, err := d.client.Api.CreateCall(params); err != nil {
		return fmt.Errorf("create call to %s: %w", number, err)
	}
	return nil
}
