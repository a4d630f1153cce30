package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/brandonwu32/financedashboard/internal/sheets"
)

// Scopes requested for both credential paths. Drive is needed to copy the
// template and share the copy with its owner.
var Scopes = []string{gsheet.SpreadsheetsScope, gdrive.DriveScope}

// Credentials selects how the client authenticates. A service account is
// preferred; the OAuth client and token pair is the fallback for personal
// accounts.
type Credentials struct {
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
}

// Client implements ports.LedgerStore against Google Sheets and Drive.
type Client struct {
	sheets *gsheet.Service
	drive  *gdrive.Service
}

// Ensure interface conformance
var _ ports.LedgerStore = (*Client)(nil)

// New authenticates with creds and builds both API services.
func New(ctx context.Context, creds Credentials) (*Client, error) {
	httpClient, err := newAuthorizedClient(ctx, creds)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, goption.WithHTTPClient(httpClient))
}

// NewWithOptions builds the services from explicit client options. Tests use
// it to point both services at a local endpoint.
func NewWithOptions(ctx context.Context, opts ...goption.ClientOption) (*Client, error) {
	sheetsSvc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// newAuthorizedClient resolves credentials in order: inline service account
// JSON, service account file, GOOGLE_APPLICATION_CREDENTIALS, then an OAuth
// client with a saved token.
func newAuthorizedClient(ctx context.Context, creds Credentials) (*http.Client, error) {
	base := newHTTPClientWithPooling()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	saJSON, err := readSecret(creds.ServiceAccountJSON, firstNonEmpty(creds.ServiceAccountFile, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")))
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		cfg, err := goauth.JWTConfigFromJSON(saJSON, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("service account config: %w", err)
		}
		slog.InfoContext(ctx, "Using service account credentials", "email", cfg.Email)
		return oauth2.NewClient(ctx, cfg.TokenSource(ctx)), nil
	}

	clientJSON, err := readSecret(creds.OAuthClientJSON, creds.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) == 0 {
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_OAUTH_CLIENT_JSON)")
	}
	cfg, err := goauth.ConfigFromJSON(clientJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	tokenJSON, err := readSecret(creds.OAuthTokenJSON, creds.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	tok, err := decodeToken(tokenJSON)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Using OAuth client credentials", "has_refresh_token", tok.RefreshToken != "")
	return oauth2.NewClient(ctx, cfg.TokenSource(ctx, tok)), nil
}

// newHTTPClientWithPooling creates the base transport shared by both APIs.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) ReadRange(ctx context.Context, docID, a1 string) ([][]string, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(docID, a1).
		ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, classify("read "+a1, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		out = append(out, toStrings(row))
	}
	return out, nil
}

func (c *Client) AppendRows(ctx context.Context, docID, a1 string, rows [][]any) error {
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.sheets.Spreadsheets.Values.Append(docID, a1, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classify("append "+a1, err)
	}
	return nil
}

func (c *Client) UpdateCell(ctx context.Context, docID, cell string, value any) error {
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}
	_, err := c.sheets.Spreadsheets.Values.Update(docID, cell, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return classify("update "+cell, err)
	}
	return nil
}

func (c *Client) SectionNames(ctx context.Context, docID string) ([]string, error) {
	resp, err := c.sheets.Spreadsheets.Get(docID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, classify("spreadsheet metadata", err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			names = append(names, s.Properties.Title)
		}
	}
	return names, nil
}

func (c *Client) CopyDocument(ctx context.Context, templateID, title string) (string, error) {
	f, err := c.drive.Files.Copy(templateID, &gdrive.File{Name: title}).
		Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", classify("copy template", err)
	}
	return f.Id, nil
}

// ShareDocument grants writer access without sending a notification email.
func (c *Client) ShareDocument(ctx context.Context, docID, email string) error {
	perm := &gdrive.Permission{Type: "user", Role: "writer", EmailAddress: email}
	_, err := c.drive.Permissions.Create(docID, perm).
		SendNotificationEmail(false).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return classify("share document", err)
	}
	return nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
