package adapter

import (
	"context"
	"errors"
	"net"
)

// TranslationRequest is one chunk sent to the external model service.
// Language codes are the public ones; gateways map them to their dialect.
type TranslationRequest struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
}

// TranslationGateway is the port for the external translation service.
type TranslationGateway interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Translate returns the raw service output for one chunk.
	Translate(ctx context.Context, req TranslationRequest) (string, error)
}

var (
	ErrGatewayTimeout  = errors.New("translation service timed out")
	ErrGatewayRejected = errors.New("translation service returned an error")
	ErrEmptyResponse   = errors.New("translation service returned no text")
)

// IsTimeout reports whether err belongs to the timeout/abort class.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrGatewayTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
