package chat

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/carl-assist/carl-client/internal/config"
	"github.com/carl-assist/carl-client/internal/models"
)

// URL builds the WebSocket URL for the configured deployment variant.
// The token variant embeds the session token in the path; the user
// variant identifies the connection by user id and display name, with a
// generated anonymous identity when no profile is available.
func URL(cfg *config.Config, token string, user *models.UserProfile) string {
	if cfg.WSVariant == config.WSVariantUser {
		id := "anon_" + uuid.NewString()
		name := "Anonymous User"
		if user != nil {
			id = user.ID
			if user.Name != "" {
				name = user.Name
			}
		}
		return cfg.WSBaseURL + "/ws/user/" + url.PathEscape(id) + "?user_name=" + url.QueryEscape(name)
	}
	return cfg.WSBaseURL + "/ws/" + url.PathEscape(token)
}
