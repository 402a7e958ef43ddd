package runner

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// ErrUnsupportedAuth is returned for auth types this runner cannot sign
// requests with (digest, awsv4, ntlm, wsse).
var ErrUnsupportedAuth = errors.New("auth type not supported by the runner")

// applyAuth sets the credentials of a resolved auth block on r.
func applyAuth(r *http.Request, a collection.Auth) error {
	switch v := a.(type) {
	case nil, collection.NoAuth:
		return nil
	case collection.BasicAuth:
		r.SetBasicAuth(v.Username, v.Password)
		return nil
	case collection.BearerAuth:
		token := &oauth2.Token{AccessToken: v.Token, TokenType: "Bearer"}
		token.SetAuthHeader(r)
		return nil
	case collection.APIKeyAuth:
		switch v.Placement {
		case collection.PlacementHeader:
			r.Header.Set(v.Key, v.Value)
		case collection.PlacementQuery:
			q := r.URL.Query()
			q.Set(v.Key, v.Value)
			r.URL.RawQuery = q.Encode()
		default:
			return fmt.Errorf("apikey placement %q: %w", v.Placement, collection.ErrUnknownType)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", a.Type(), ErrUnsupportedAuth)
}
