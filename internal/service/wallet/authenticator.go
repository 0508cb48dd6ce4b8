package wallet

import (
	"context"

	"github.com/andresmz/walletcore/internal/models"
	"github.com/andresmz/walletcore/internal/repository"
)

// ClientAuthenticator resolves a (document, phone) pair to a client. The
// phone works as a low-entropy shared secret here, so the check sits
// behind this capability and can be hardened without touching the engine.
type ClientAuthenticator interface {
	// Must return apperrors.ErrClientNotFound when the pair resolves to
	// nothing. A wrong phone and a missing client are indistinguishable
	// on purpose
	Authenticate(ctx context.Context, document string, phone string) (models.Client, error)
}

// repoAuthenticator is the default implementation backed by the client
// repository lookup.
type repoAuthenticator struct {
	clients repository.ClientRepo
}

func (a *repoAuthenticator) Authenticate(ctx context.Context, document string, phone string) (models.Client, error) {
	return a.clients.GetClientByCredentials(ctx, document, phone)
}
