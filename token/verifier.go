package token

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/foodbook-server/internal/errors"
)

// Kind tags a verification outcome.
type Kind int

const (
	KindMissing Kind = iota
	KindValid
	KindInvalid
	KindExpired
	KindWrongType
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindValid:
		return "valid"
	case KindInvalid:
		return "invalid"
	case KindExpired:
		return "expired"
	case KindWrongType:
		return "wrong_type"
	default:
		return "unknown"
	}
}

// Outcome is the result of verifying one presented credential. SubjectID is
// only set when Kind is KindValid; Reason is only set for KindInvalid.
type Outcome struct {
	Kind      Kind
	SubjectID string
	Reason    string
}

func (o Outcome) Valid() bool {
	return o.Kind == KindValid
}

// Err maps the outcome onto the shared error taxonomy. It is nil for a valid
// credential.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindValid:
		return nil
	case KindMissing:
		return apperrors.ErrCredentialMissing
	case KindExpired:
		return apperrors.ErrCredentialExpired
	case KindWrongType:
		return apperrors.ErrCredentialWrongType
	default:
		if o.Reason == "" {
			return apperrors.ErrCredentialInvalid
		}
		return apperrors.Wrapf(apperrors.ErrCredentialInvalid, "%s", o.Reason)
	}
}

// Verifier checks signature, expiry and type of presented credentials. It
// performs no I/O and is safe for concurrent use.
type Verifier struct {
	keys Keys
	opts options
}

func NewVerifier(keys Keys, opts ...Option) *Verifier {
	return &Verifier{
		keys: keys,
		opts: newOptions(opts),
	}
}

// Verify checks raw against the key for expected.
func (v *Verifier) Verify(raw string, expected Type) Outcome {
	outcome, _ := v.VerifyClaims(raw, expected)
	return outcome
}

// VerifyClaims is Verify that also returns the decoded claims of a valid
// credential.
func (v *Verifier) VerifyClaims(raw string, expected Type) (Outcome, *Claims) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Outcome{Kind: KindMissing}, nil
	}
	if !expected.Valid() {
		return Outcome{Kind: KindInvalid, Reason: "unknown expected type"}, nil
	}

	claims, err := v.parse(raw, expected, true)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Outcome{Kind: KindExpired}, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		// Signed with the other type's key: report the channel mismatch.
		if _, otherErr := v.parse(raw, expected.other(), false); otherErr == nil {
			return Outcome{Kind: KindWrongType}, nil
		}
		return Outcome{Kind: KindInvalid, Reason: "signature invalid"}, nil
	default:
		return Outcome{Kind: KindInvalid, Reason: reasonFor(err)}, nil
	}

	if !claims.Type.Valid() {
		return Outcome{Kind: KindInvalid, Reason: "unknown credential type"}, nil
	}
	if claims.Type != expected {
		return Outcome{Kind: KindWrongType}, nil
	}
	if claims.Subject == "" {
		return Outcome{Kind: KindInvalid, Reason: "missing subject"}, nil
	}
	return Outcome{Kind: KindValid, SubjectID: claims.Subject}, claims
}

func (v *Verifier) parse(raw string, t Type, validateClaims bool) (*Claims, error) {
	signer := v.keys.signerFor(t)
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(v.opts.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if v.opts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(v.opts.issuer))
	}
	if !validateClaims {
		parserOptions = append(parserOptions, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	if _, err := jwt.NewParser(parserOptions...).ParseWithClaims(raw, claims, signer.GetVerificationKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "issuer mismatch"
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return "not valid yet"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "required claim missing"
	default:
		return "invalid"
	}
}
