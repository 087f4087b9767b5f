package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
	tu "github.com/desertthunder/ifbsync/internal/testing"
	"github.com/golang-jwt/jwt/v5"
)

const testProfile = "/exzact/api/v60/profiles/42"

// newTestClient starts a server with a working token endpoint and the given API routes.
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) (*IFBClient, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+tokenPath, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse token form: %v", err)
		}
		if r.PostForm.Get("grant_type") != jwtBearerGrant {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	for pattern, h := range routes {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+testProfile+path, h)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewIFBClient(context.Background(), ClientOpts{
		BaseURL:      srv.URL,
		ProfileID:    42,
		ClientKey:    "key",
		ClientSecret: "secret",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client, srv
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestNewIFBClient(t *testing.T) {
	tc := []struct {
		name string
		opts ClientOpts
		want error
	}{
		{name: "missing secret", opts: ClientOpts{ServerName: "acme", ProfileID: 1, ClientKey: "k"}, want: shared.ErrMissingCredentials},
		{name: "missing profile", opts: ClientOpts{ServerName: "acme", ClientKey: "k", ClientSecret: "s"}, want: shared.ErrInvalidConfig},
		{name: "missing server", opts: ClientOpts{ProfileID: 1, ClientKey: "k", ClientSecret: "s"}, want: shared.ErrInvalidConfig},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIFBClient(context.Background(), tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("server name builds base url", func(t *testing.T) {
		c, err := NewIFBClient(context.Background(), ClientOpts{ServerName: "acme", ProfileID: 7, ClientKey: "k", ClientSecret: "s"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.apiBase != "https://acme.iformbuilder.com/exzact/api/v60/profiles/7" {
			t.Errorf("unexpected api base %s", c.apiBase)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("signs assertion and counts the token call", func(t *testing.T) {
		var assertion, audience string

		mux := http.NewServeMux()
		srv := httptest.NewServer(mux)
		defer srv.Close()
		audience = srv.URL + tokenPath

		mux.HandleFunc("POST "+tokenPath, func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			assertion = r.PostForm.Get("assertion")
			fmt.Fprint(w, `{"access_token":"tok","expires_in":3600}`)
		})

		c, err := NewIFBClient(context.Background(), ClientOpts{BaseURL: srv.URL, ProfileID: 1, ClientKey: "key", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", c.Calls())
		}

		claims := &jwt.RegisteredClaims{}
		parsed, err := jwt.ParseWithClaims(assertion, claims,
			func(*jwt.Token) (any, error) { return []byte("secret"), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer("key"),
			jwt.WithAudience(audience),
			jwt.WithIssuedAt(),
		)
		if err != nil || !parsed.Valid {
			t.Fatalf("assertion does not verify with the client secret: %v", err)
		}
		if claims.IssuedAt == nil || claims.ExpiresAt == nil {
			t.Fatalf("expected iat and exp claims, got %+v", claims)
		}
		if ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time); ttl != 10*time.Minute {
			t.Errorf("expected a 10 minute assertion, got %v", ttl)
		}

		if _, err := jwt.Parse(assertion, func(*jwt.Token) (any, error) { return []byte("wrong"), nil }); err == nil {
			t.Error("expected the assertion to fail verification with another secret")
		}
	})

	t.Run("rejected credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		c, err := NewIFBClient(context.Background(), ClientOpts{BaseURL: srv.URL, ProfileID: 1, ClientKey: "k", ClientSecret: "s"})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		err = c.Authenticate(context.Background())
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "invalid_client") {
			t.Errorf("expected response excerpt in error, got %v", err)
		}
	})

	t.Run("transport failures", func(t *testing.T) {
		tests := []struct {
			name      string
			transport http.RoundTripper
		}{
			{"connection error", tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			{"unreadable body", tu.NewMockRoundTripper(&http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}}, nil)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c, err := NewIFBClient(context.Background(), ClientOpts{
					BaseURL:      "https://example.iformbuilder.com",
					ProfileID:    1,
					ClientKey:    "k",
					ClientSecret: "s",
					HTTPClient:   &http.Client{Transport: tt.transport},
				})
				if err != nil {
					t.Fatalf("failed to create client: %v", err)
				}

				if err := c.Authenticate(context.Background()); !errors.Is(err, shared.ErrAuthFailed) {
					t.Errorf("expected ErrAuthFailed, got %v", err)
				}
				if c.Calls() != 1 {
					t.Errorf("expected the failed token request to count, got %d calls", c.Calls())
				}
			})
		}
	})
}

func TestIFBClient(t *testing.T) {
	t.Run("ListRecords paginates until a short page", func(t *testing.T) {
		const total = 2500
		var offsets []string

		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"GET /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer token, got %q", got)
				}
				if got := r.URL.Query().Get("fields"); got != "id,site_id,depth" {
					t.Errorf("unexpected fields %q", got)
				}

				offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				offsets = append(offsets, r.URL.Query().Get("offset"))

				page := []map[string]any{}
				for i := offset; i < min(offset+limit, total); i++ {
					page = append(page, map[string]any{"id": i + 1, "site_id": fmt.Sprintf("s%d", i), "depth": 12.0, "note": nil})
				}
				writeJSON(t, w, page)
			},
		})

		records, err := c.ListRecords(context.Background(), 9, []string{"site_id", "depth"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != total {
			t.Fatalf("expected %d records, got %d", total, len(records))
		}
		if strings.Join(offsets, ",") != "0,1000,2000" {
			t.Errorf("unexpected offsets %v", offsets)
		}
		if c.Calls() != 4 {
			t.Errorf("expected 1 token call and 3 pages, got %d calls", c.Calls())
		}

		first := records[0]
		if first.ID != 1 || first.Values["site_id"] != "s0" || first.Values["depth"] != "12" {
			t.Errorf("unexpected first record %+v", first)
		}
	})

	t.Run("full last page needs one more request", func(t *testing.T) {
		var requests int
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"GET /pages": func(w http.ResponseWriter, r *http.Request) {
				requests++
				page := []map[string]any{}
				if r.URL.Query().Get("offset") == "0" {
					for i := range containerPageSize {
						page = append(page, map[string]any{"id": i + 1, "name": fmt.Sprintf("p%d", i)})
					}
				}
				writeJSON(t, w, page)
			},
		})

		pages, err := c.ListPages(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pages) != containerPageSize || requests != 2 {
			t.Errorf("expected %d pages in 2 requests, got %d in %d", containerPageSize, len(pages), requests)
		}
	})

	t.Run("CreatePage returns the new id", func(t *testing.T) {
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"POST /pages": func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["name"] != "lookup" || body["label"] != "Lookup" {
					t.Errorf("unexpected body %v", body)
				}
				fmt.Fprint(w, `{"id": 321}`)
			},
		})

		id, err := c.CreatePage(context.Background(), "lookup", "Lookup")
		if err != nil || id != 321 {
			t.Errorf("expected id 321, got %d (%v)", id, err)
		}
	})

	t.Run("CreateRecords sends fields in column order", func(t *testing.T) {
		var body []recordPayload
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"POST /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode body: %v", err)
				}
				fmt.Fprint(w, `[{"id":1},{"id":2}]`)
			},
		})

		rows := []models.Row{{"site_id": "a", "depth": "1", "extra": "x"}, {"site_id": "b", "depth": "2"}}
		if err := c.CreateRecords(context.Background(), 9, []string{"site_id", "depth"}, rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(body) != 2 || len(body[0].Fields) != 2 {
			t.Fatalf("unexpected body %+v", body)
		}
		if body[0].Fields[0] != (fieldValue{ElementName: "site_id", Value: "a"}) {
			t.Errorf("unexpected first field %+v", body[0].Fields[0])
		}
	})

	t.Run("UpdateOptions sends numeric sort orders as numbers", func(t *testing.T) {
		var raw []map[string]any
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"PUT /optionlists/5/options": func(w http.ResponseWriter, r *http.Request) {
				json.NewDecoder(r.Body).Decode(&raw)
				fmt.Fprint(w, `[]`)
			},
		})

		options := []models.Option{
			{ID: 11, KeyValue: "red", Label: "Red", SortOrder: "2"},
			{ID: 12, KeyValue: "blue", Label: "Blue", SortOrder: "first"},
		}
		if err := c.UpdateOptions(context.Background(), 5, options); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got, ok := raw[0]["sort_order"].(float64); !ok || got != 2 {
			t.Errorf("expected numeric sort order, got %#v", raw[0]["sort_order"])
		}
		if got := raw[1]["sort_order"]; got != "first" {
			t.Errorf("expected string sort order, got %#v", got)
		}
		if got := raw[0]["id"]; got != float64(11) {
			t.Errorf("expected id 11, got %#v", got)
		}
	})

	t.Run("ListOptions coerces values", func(t *testing.T) {
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"GET /optionlists/5/options": func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[{"id":"11","key_value":"red","label":"Red","sort_order":1,"condition_value":null}]`)
			},
		})

		options, err := c.ListOptions(context.Background(), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := models.Option{ID: 11, KeyValue: "red", Label: "Red", SortOrder: "1"}
		if len(options) != 1 || options[0] != want {
			t.Errorf("expected %+v, got %+v", want, options)
		}
	})

	t.Run("DeleteAllRecords repeats until no ids remain", func(t *testing.T) {
		remaining := 2500
		next := 1
		var deletes, listings int

		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"DELETE /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				deletes++
				limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
				if err != nil || limit != 1000 {
					t.Errorf("expected limit=1000, got %q", r.URL.Query().Get("limit"))
					limit = 100
				}
				n := min(limit, remaining)
				remaining -= n
				next += n
				fmt.Fprint(w, `[]`)
			},
			"GET /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				listings++
				if got := r.URL.Query().Get("fields"); got != "id" {
					t.Errorf("expected id listing, got fields %q", got)
				}
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				page := []map[string]any{}
				for i := range min(limit, remaining) {
					page = append(page, map[string]any{"id": next + i})
				}
				writeJSON(t, w, page)
			},
		})

		if err := c.DeleteAllRecords(context.Background(), 9); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if remaining != 0 {
			t.Errorf("expected every record deleted, %d remain", remaining)
		}
		if deletes != 3 || listings != 3 {
			t.Errorf("expected 3 deletes and 3 listings, got %d and %d", deletes, listings)
		}
		if c.Calls() != 7 {
			t.Errorf("expected 1 token call and 6 record calls, got %d calls", c.Calls())
		}
	})

	t.Run("DeleteAllRecords stops when records do not go away", func(t *testing.T) {
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"DELETE /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `[]`)
			},
			"GET /pages/9/records": func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[{"id":1},{"id":2}]`)
			},
		})

		err := c.DeleteAllRecords(context.Background(), 9)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "2 records remain") {
			t.Errorf("expected remaining count in error, got %v", err)
		}
		if c.Calls() != 5 {
			t.Errorf("expected 1 token call and 2 rounds, got %d calls", c.Calls())
		}
	})

	t.Run("non-2xx responses", func(t *testing.T) {
		c, _ := newTestClient(t, map[string]http.HandlerFunc{
			"DELETE /pages/9/records/3": func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "record is locked", http.StatusConflict)
			},
		})

		err := c.DeleteRecord(context.Background(), 9, 3)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		for _, want := range []string{"DELETE", "/pages/9/records/3", "status 409", "record is locked"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected error to contain %q, got %v", want, err)
			}
		}
		if c.Calls() != 2 {
			t.Errorf("failed calls still count, expected 2 got %d", c.Calls())
		}
	})
}

func TestStringify(t *testing.T) {
	tc := []struct {
		in   any
		want string
	}{
		{in: nil, want: ""},
		{in: "abc", want: "abc"},
		{in: json.Number("12"), want: "12"},
		{in: json.Number("12.0"), want: "12"},
		{in: json.Number("12.50"), want: "12.5"},
		{in: 3.25, want: "3.25"},
		{in: true, want: "true"},
		{in: []any{"a"}, want: `["a"]`},
	}

	for _, tt := range tc {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			if got := Stringify(tt.in); got != tt.want {
				t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
