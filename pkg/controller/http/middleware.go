package http

import (
	"crypto/ed25519"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/utils/errutil"
)

// DiscordSignatureMiddleware rejects requests whose Ed25519 signature does
// not verify against publicKey. The body is left readable for next.
func DiscordSignatureMiddleware(publicKey ed25519.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(publicKey) != ed25519.PublicKeySize || !discordgo.VerifyInteraction(r, publicKey) {
				errutil.HandleHTTP(r.Context(), w, goerr.New("discord signature verification failed",
					goerr.V("timestamp", r.Header.Get("X-Signature-Timestamp"))), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
