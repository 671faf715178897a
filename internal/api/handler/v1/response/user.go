package response

import "github.com/ludotheque/ludo-api/internal/domain"

type Me struct {
	domain.Identity
	Capabilities []domain.Capability `json:"capabilities"`
}

type APIKey struct {
	Key string `json:"key"`
}
