package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseVerifier asks Supabase GoTrue who owns a JWT (GET /auth/v1/user),
// authenticating the call with the project's anon key.
type SupabaseVerifier struct {
	BaseURL string
	AnonKey string
	Client  *http.Client
}

func NewSupabaseVerifier(baseURL, anonKey string) *SupabaseVerifier {
	return &SupabaseVerifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		AnonKey: anonKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type supabaseError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (e supabaseError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return Principal{}, fmt.Errorf("supabase request: %w", err)
	}
	req.Header.Set("apikey", v.AnonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Principal{}, &VerifyError{Message: "Identity service unavailable", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		var se supabaseError
		_ = json.Unmarshal(body, &se)
		return Principal{}, &VerifyError{Status: resp.StatusCode, Message: se.text()}
	}

	var u supabaseUser
	if err := json.Unmarshal(body, &u); err != nil {
		return Principal{}, fmt.Errorf("supabase decode: %w", err)
	}
	if u.ID == "" {
		return Principal{}, ErrNoPrincipal
	}
	return Principal{ID: u.ID, Email: u.Email}, nil
}
