package collection

import "fmt"

// AuthType is the `type` discriminator of an auth block.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthDigest AuthType = "digest"
	AuthAPIKey AuthType = "apikey"
	AuthAWSV4  AuthType = "awsv4"
	AuthNTLM   AuthType = "ntlm"
	AuthWSSE   AuthType = "wsse"
)

// ParseAuthType validates a wire discriminator.
func ParseAuthType(s string) (AuthType, error) {
	switch t := AuthType(s); t {
	case AuthNone, AuthBasic, AuthBearer, AuthDigest, AuthAPIKey, AuthAWSV4, AuthNTLM, AuthWSSE:
		return t, nil
	}
	return "", fmt.Errorf("auth type %q: %w", s, ErrUnknownType)
}

// Auth is an authentication block. Variants are value types so that copying
// the interface never shares state with the source document.
type Auth interface {
	Type() AuthType
	isAuth()
}

type NoAuth struct{}

type BasicAuth struct {
	Username string
	Password string
}

type BearerAuth struct {
	Token string
}

type DigestAuth struct {
	Username string
	Password string
}

// APIKeyPlacement tells where an API key is sent.
type APIKeyPlacement string

const (
	PlacementHeader APIKeyPlacement = "header"
	PlacementQuery  APIKeyPlacement = "query"
)

type APIKeyAuth struct {
	Key       string
	Value     string
	Placement APIKeyPlacement
}

type AWSV4Auth struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Service         string
	Region          string
	ProfileName     string
}

type NTLMAuth struct {
	Username string
	Password string
	Domain   string
}

type WSSEAuth struct {
	Username string
	Password string
}

func (NoAuth) Type() AuthType     { return AuthNone }
func (BasicAuth) Type() AuthType  { return AuthBasic }
func (BearerAuth) Type() AuthType { return AuthBearer }
func (DigestAuth) Type() AuthType { return AuthDigest }
func (APIKeyAuth) Type() AuthType { return AuthAPIKey }
func (AWSV4Auth) Type() AuthType  { return AuthAWSV4 }
func (NTLMAuth) Type() AuthType   { return AuthNTLM }
func (WSSEAuth) Type() AuthType   { return AuthWSSE }

func (NoAuth) isAuth()     {}
func (BasicAuth) isAuth()  {}
func (BearerAuth) isAuth() {}
func (DigestAuth) isAuth() {}
func (APIKeyAuth) isAuth() {}
func (AWSV4Auth) isAuth()  {}
func (NTLMAuth) isAuth()   {}
func (WSSEAuth) isAuth()   {}

// ValidateAuth checks the required fields of an auth variant.
// A nil auth is valid and means "not declared".
func ValidateAuth(a Auth) error {
	missing := func(field string) error {
		return fmt.Errorf("%s auth requires %q: %w", a.Type(), field, ErrMissingAuthField)
	}
	switch v := a.(type) {
	case nil, NoAuth:
		return nil
	case BasicAuth:
		if v.Username == "" {
			return missing("username")
		}
	case BearerAuth:
		if v.Token == "" {
			return missing("token")
		}
	case DigestAuth:
		if v.Username == "" {
			return missing("username")
		}
	case APIKeyAuth:
		switch {
		case v.Key == "":
			return missing("key")
		case v.Value == "":
			return missing("value")
		case v.Placement == "":
			return missing("placement")
		case v.Placement != PlacementHeader && v.Placement != PlacementQuery:
			return fmt.Errorf("apikey placement %q: %w", v.Placement, ErrUnknownType)
		}
	case AWSV4Auth:
		switch {
		case v.AccessKeyID == "":
			return missing("accessKeyId")
		case v.SecretAccessKey == "":
			return missing("secretAccessKey")
		case v.Service == "":
			return missing("service")
		case v.Region == "":
			return missing("region")
		}
	case NTLMAuth:
		if v.Username == "" {
			return missing("username")
		}
	case WSSEAuth:
		if v.Username == "" {
			return missing("username")
		}
	default:
		return fmt.Errorf("auth variant %T: %w", a, ErrUnknownType)
	}
	return nil
}
