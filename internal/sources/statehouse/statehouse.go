// Package statehouse adapts the state legislature API to the unified bill
// model. The provider wraps every response in a status envelope, marks
// lifecycle stages with numeric codes and authenticates with a key query
// parameter; this client unwraps, validates and normalizes, tagging every
// bill with state provenance.
package statehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/sources"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.legiscan.com"

const (
	defaultTimeout = 10 * time.Second
	dateLayout     = "2006-01-02"

	statusOK = "OK"
)

// Client calls the state provider. One method invocation performs exactly
// one remote call.
type Client struct {
	baseURL string
	apiKey  string
	state   string
	http    *http.Client
}

// New creates a state client authenticating with apiKey, scoped to the
// given state legislature code (e.g. "CA").
func New(apiKey, state string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		state:   state,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source identifies this adapter's upstream.
func (c *Client) Source() model.SourceID { return model.SourceState }

// Recent lists bills by most recent action.
func (c *Client) Recent(ctx context.Context, page sources.Page) ([]model.Bill, error) {
	return c.call(ctx, "masterlist", url.Values{}, page)
}

// ByTopic runs a full-text subject search.
func (c *Client) ByTopic(ctx context.Context, topic string, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("query", topic)
	return c.call(ctx, "search", params, page)
}

// ByStatus lists bills at a lifecycle stage, translated to the provider's
// numeric code.
func (c *Client) ByStatus(ctx context.Context, status model.Status, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("status", strconv.Itoa(statusCode(status)))
	return c.call(ctx, "masterlist", params, page)
}

// BySponsor lists bills associated with the given legislators in role. The
// id set travels as one comma-joined parameter so the whole fetch stays a
// single quota-counted call.
func (c *Client) BySponsor(ctx context.Context, role sources.Role, sponsorIDs []string, page sources.Page) ([]model.Bill, error) {
	params := url.Values{}
	params.Set("people_ids", strings.Join(sponsorIDs, ","))
	params.Set("role", string(role))
	return c.call(ctx, "sponsored", params, page)
}

type wireSponsor struct {
	PeopleID int    `json:"people_id"`
	Name     string `json:"name"`
	Party    string `json:"party"`
	Role     string `json:"role"`
}

type wireBill struct {
	BillID         int         `json:"bill_id"`
	Number         string      `json:"number"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Status         int         `json:"status"`
	StatusDate     string      `json:"status_date"`
	IntroducedDate string      `json:"introduced_date"`
	LastAction     string      `json:"last_action"`
	LastActionDate string      `json:"last_action_date"`
	Subjects       []string    `json:"subjects"`
	Sponsor        wireSponsor `json:"sponsor"`
}

type envelope struct {
	Status string `json:"status"`
	Alert  struct {
		Message string `json:"message"`
	} `json:"alert"`
	Bills []wireBill `json:"bills"`
}

// codeToStatus maps the provider's numeric lifecycle codes onto unified
// stages.
var codeToStatus = map[int]model.Status{
	1: model.StatusIntroduced,
	2: model.StatusCommittee,
	3: model.StatusPassedChamber,
	4: model.StatusPassedBoth,
	5: model.StatusEnacted,
	6: model.StatusVetoed,
	7: model.StatusFailed,
}

func statusCode(status model.Status) int {
	for code, s := range codeToStatus {
		if s == status {
			return code
		}
	}
	return 0
}

func (c *Client) call(ctx context.Context, op string, params url.Values, page sources.Page) ([]model.Bill, error) {
	page = page.Normalize()
	params.Set("key", c.apiKey)
	params.Set("op", op)
	params.Set("state", c.state)
	params.Set("limit", strconv.Itoa(page.Limit))
	params.Set("offset", strconv.Itoa(page.Offset))

	endpoint := c.baseURL + "/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceState, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceState, Message: fmt.Sprintf("call upstream: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceState, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		excerpt := strings.TrimSpace(string(body))
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, &sources.UpstreamError{Source: model.SourceState, Status: resp.StatusCode, Message: excerpt}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &sources.UpstreamError{Source: model.SourceState, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}
	if env.Status != statusOK {
		msg := env.Alert.Message
		if msg == "" {
			msg = fmt.Sprintf("envelope status %q", env.Status)
		}
		return nil, &sources.UpstreamError{Source: model.SourceState, Status: resp.StatusCode, Message: msg}
	}
	return normalize(env.Bills)
}

// normalize validates the wire bills and converts them to the unified
// model. Any violation fails the whole response.
func normalize(wire []wireBill) ([]model.Bill, error) {
	bills := make([]model.Bill, 0, len(wire))
	for i, w := range wire {
		native := model.NormalizeNativeID(w.Number)
		if native == "" {
			return nil, schemaErr(fmt.Sprintf("bill %d: missing number", i))
		}
		if strings.TrimSpace(w.Title) == "" {
			return nil, schemaErr(fmt.Sprintf("bill %s: missing title", native))
		}
		status, ok := codeToStatus[w.Status]
		if !ok {
			return nil, schemaErr(fmt.Sprintf("bill %s: unrecognized status code %d", native, w.Status))
		}
		introduced, err := parseDate(w.IntroducedDate)
		if err != nil {
			return nil, schemaErr(fmt.Sprintf("bill %s: bad introduced_date %q", native, w.IntroducedDate))
		}
		lastAction, err := parseDate(latest(w.LastActionDate, w.StatusDate))
		if err != nil {
			return nil, schemaErr(fmt.Sprintf("bill %s: bad last_action_date %q", native, w.LastActionDate))
		}
		if lastAction.IsZero() {
			lastAction = introduced
		}

		sponsorID := ""
		if w.Sponsor.PeopleID != 0 {
			sponsorID = strconv.Itoa(w.Sponsor.PeopleID)
		}
		bills = append(bills, model.Bill{
			ID:       model.TagID(model.SourceState, native),
			NativeID: native,
			Source:   model.SourceState,
			Title:    strings.TrimSpace(w.Title),
			Summary:  strings.TrimSpace(w.Description),
			Sponsor: model.Sponsor{
				ID:      sponsorID,
				Name:    w.Sponsor.Name,
				Party:   w.Sponsor.Party,
				Chamber: chamber(w.Sponsor.Role),
			},
			Status:       status,
			Subjects:     w.Subjects,
			IntroducedAt: introduced,
			LastActionAt: lastAction,
		})
	}
	return bills, nil
}

// chamber expands the provider's role abbreviation.
func chamber(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "sen":
		return "Senate"
	case "rep":
		return "House"
	default:
		return strings.TrimSpace(role)
	}
}

// latest prefers the explicit last-action date, falling back to the status
// date some lists carry instead.
func latest(lastAction, statusDate string) string {
	if lastAction != "" {
		return lastAction
	}
	return statusDate
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, s)
}

func schemaErr(msg string) *sources.UpstreamError {
	return &sources.UpstreamError{Source: model.SourceState, Status: http.StatusOK, Message: msg}
}
