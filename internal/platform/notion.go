package platform

import (
	"golang.org/x/oauth2"
)

var notionEndpoint = oauth2.Endpoint{
	AuthURL:  "https://api.notion.com/v1/oauth/authorize",
	TokenURL: "https://api.notion.com/v1/oauth/token",
}

// Notion is the projection target: it carries the OAuth flow but no activity
// fetch. The reconciler pushes goals and summaries into the workspace the
// user granted during connect.
type Notion struct {
	oauth *oauth2.Config
}

func NewNotion(clientID, clientSecret, appURL string) *Notion {
	return &Notion{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  appURL + "/connect/notion/callback",
			Endpoint:     notionEndpoint,
		},
	}
}

func (n *Notion) Key() string                 { return "notion" }
func (n *Notion) DisplayName() string         { return "Notion" }
func (n *Notion) OAuthConfig() *oauth2.Config { return n.oauth }
