package subscriber

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/updateme/engine/internal/core/domain/search"
)

type Language string

const (
	LanguageES Language = "es"
	LanguageEN Language = "en"

	DefaultLanguage = LanguageES
)

// Normalize maps anything unknown to the default language.
func (l Language) Normalize() Language {
	switch Language(strings.ToLower(string(l))) {
	case LanguageEN:
		return LanguageEN
	case LanguageES:
		return LanguageES
	default:
		return DefaultLanguage
	}
}

type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

type Subscriber struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Email          string        `json:"email" db:"email"`
	Language       Language      `json:"language" db:"language"`
	AIProvider     string        `json:"ai_provider" db:"ai_provider"`
	SearchProvider string        `json:"search_provider" db:"search_provider"`
	AccountStatus  AccountStatus `json:"account_status" db:"account_status"`
	Preferences    Preferences   `json:"preferences" db:"preferences"`
	LastEmailSent  *time.Time    `json:"last_email_sent" db:"last_email_sent"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Username returns the local part of an email address.
func Username(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func (s *Subscriber) Username() string { return Username(s.Email) }

func (s *Subscriber) IsActive() bool { return s.AccountStatus == StatusActive }

// Preferences holds per-subscriber overrides for the search stage.
type Preferences struct {
	TavilyConfig  *search.Config `json:"tavily_config,omitempty"`
	SerpAPIConfig *search.Config `json:"serpapi_config,omitempty"`
	TavilyPrompt  string         `json:"tavily_prompt,omitempty"`
	SerpAPIPrompt string         `json:"serpapi_prompt,omitempty"`
}

// SearchConfig returns the override for a backend, or nil.
func (p Preferences) SearchConfig(b search.Backend) *search.Config {
	switch b {
	case search.BackendTavily:
		return p.TavilyConfig
	case search.BackendSerpAPI:
		return p.SerpAPIConfig
	}
	return nil
}

// ResultPrompt returns the custom result-summarizing prompt for a backend, or "".
func (p Preferences) ResultPrompt(b search.Backend) string {
	switch b {
	case search.BackendTavily:
		return p.TavilyPrompt
	case search.BackendSerpAPI:
		return p.SerpAPIPrompt
	}
	return ""
}

// Value implements driver.Valuer so preferences are stored as a JSON document.
func (p Preferences) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Preferences) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = Preferences{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported preferences type %T", src)
	}
	if len(raw) == 0 {
		*p = Preferences{}
		return nil
	}
	return json.Unmarshal(raw, p)
}
