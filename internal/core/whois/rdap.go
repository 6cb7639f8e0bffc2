package whois

import (
	"context"
	"net/url"
	"time"

	"github.com/openrdap/rdap"
	"go.uber.org/zap"

	"github.com/namelens/reachlens/internal/core"
)

const rdapSource = "rdap"

// RDAP looks up registration data over RDAP for extensions that have no
// port-43 server. The server is found through the IANA bootstrap registry
// unless Server is set.
type RDAP struct {
	Client  *rdap.Client
	Server  *url.URL
	Timeout time.Duration
	Logger  core.Logger
}

// Lookup returns a WHOIS-shaped record built from the RDAP domain object.
func (r *RDAP) Lookup(ctx context.Context, domain string) *core.WhoisLookupRecord {
	if r == nil {
		return nil
	}
	client := r.Client
	if client == nil {
		client = &rdap.Client{}
	}

	req := rdap.NewDomainRequest(domain)
	if r.Server != nil {
		req = req.WithServer(r.Server)
	}
	if r.Timeout > 0 {
		req.Timeout = r.Timeout
	}
	req = req.WithContext(ctx)

	resp, err := client.Do(req)
	if err != nil {
		r.logger().Debug("RDAP lookup failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}

	object, ok := resp.Object.(*rdap.Domain)
	if !ok || object == nil {
		return nil
	}

	record := &core.WhoisLookupRecord{
		Registrar:    findRegistrar(object),
		QueryTimeout: r.Timeout,
		Source:       rdapSource,
	}
	if len(resp.HTTP) > 0 && resp.HTTP[0] != nil {
		record.Server = resp.HTTP[0].URL
	}
	if expiry := findEventDate(object.Events, "expiration"); expiry != "" {
		if date, ok := NormalizeDate(expiry); ok {
			record.ExpirationDate = date
		}
	}
	return record
}

func (r *RDAP) logger() core.Logger {
	if r.Logger == nil {
		return core.NopLogger()
	}
	return r.Logger
}

func findRegistrar(domain *rdap.Domain) string {
	for _, entity := range domain.Entities {
		for _, role := range entity.Roles {
			if role == "registrar" && entity.VCard != nil {
				return entity.VCard.Name()
			}
		}
	}
	return ""
}

func findEventDate(events []rdap.Event, action string) string {
	for _, event := range events {
		if event.Action == action {
			return event.Date
		}
	}
	return ""
}
