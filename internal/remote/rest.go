package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/denttrack/denttrack/internal/model"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const restPrefix = "/rest/v1"

var errNoSession = errors.New("no access token")

// REST talks to a Supabase PostgREST endpoint. Requests carry the project
// anon key in the apikey header and the user's access token as a bearer
// token; row-level security on the server matches user_id against it.
type REST struct {
	client *resty.Client
	tokens TokenSource
	logger *zap.Logger
}

// NewREST builds a PostgREST client for cfg.URL.
func NewREST(cfg Config, tokens TokenSource, logger *zap.Logger) *REST {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &REST{client: client, tokens: tokens, logger: logger}
}

func (r *REST) request(ctx context.Context) (*resty.Request, error) {
	token := ""
	if r.tokens != nil {
		token = r.tokens.AccessToken(ctx)
	}
	if token == "" {
		return nil, errNoSession
	}
	return r.client.R().SetContext(ctx).SetAuthToken(token), nil
}

// check classifies a transport error or a non-2xx response.
func (r *REST) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, errNoSession) {
			return newError(op, KindUnauthorized, err)
		}
		return newError(op, KindNetwork, err)
	}
	code := resp.StatusCode()
	if code < 300 {
		return nil
	}

	cause := fmt.Errorf("HTTP %d: %s", code, strings.TrimSpace(resp.String()))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return newError(op, KindUnauthorized, cause)
	case code == http.StatusNotFound:
		return newError(op, KindNotFound, cause)
	default:
		return newError(op, KindServer, cause)
	}
}

// do runs fn against a fresh authenticated request and decodes the JSON
// response into out when out is non-nil.
func (r *REST) do(ctx context.Context, op string, out any, fn func(*resty.Request) (*resty.Response, error)) error {
	req, err := r.request(ctx)
	if err != nil {
		return r.check(op, nil, err)
	}

	resp, err := fn(req)
	if err := r.check(op, resp, err); err != nil {
		r.logger.Debug("request failed", zap.String("op", op), zap.Error(err))
		return err
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return newError(op, KindDecode, err)
		}
	}
	return nil
}

// FetchTreatments returns the user's treatments, most recent first and in
// insertion order among equal dates.
func (r *REST) FetchTreatments(ctx context.Context, userID string) ([]model.Treatment, error) {
	var rows []treatmentRow
	err := r.do(ctx, "fetch treatments", &rows, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(map[string]string{
			"select":  "*",
			"user_id": "eq." + userID,
			"order":   "date.desc,created_at.asc",
		}).Get(restPrefix + "/treatments")
	})
	if err != nil {
		return []model.Treatment{}, err
	}

	out := make([]model.Treatment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// SaveTreatment updates (existingID set) or inserts a treatment.
func (r *REST) SaveTreatment(ctx context.Context, userID string, t model.Treatment, existingID string) (string, error) {
	row := toTreatmentRow(userID, t)
	row.ID = ""

	var saved []treatmentRow
	if existingID != "" {
		err := r.do(ctx, "update treatment", &saved, func(req *resty.Request) (*resty.Response, error) {
			return req.
				SetHeader("Prefer", "return=representation").
				SetQueryParams(map[string]string{
					"id":      "eq." + existingID,
					"user_id": "eq." + userID,
				}).
				SetBody(row).
				Patch(restPrefix + "/treatments")
		})
		if err != nil {
			return "", err
		}
		if len(saved) == 0 {
			return "", newError("update treatment", KindNotFound, fmt.Errorf("treatment %s", existingID))
		}
		return existingID, nil
	}

	err := r.do(ctx, "insert treatment", &saved, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Prefer", "return=representation").
			SetBody(row).
			Post(restPrefix + "/treatments")
	})
	if err != nil {
		return "", err
	}
	if len(saved) == 0 || saved[0].ID == "" {
		return "", newError("insert treatment", KindDecode, errors.New("response carried no id"))
	}
	return saved[0].ID, nil
}

// DeleteTreatment deletes the treatment scoped to (id, userID).
func (r *REST) DeleteTreatment(ctx context.Context, userID, id string) error {
	return r.do(ctx, "delete treatment", nil, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(map[string]string{
			"id":      "eq." + id,
			"user_id": "eq." + userID,
		}).Delete(restPrefix + "/treatments")
	})
}

// FetchDentists returns the user's dentists ordered by name.
func (r *REST) FetchDentists(ctx context.Context, userID string) ([]model.Dentist, error) {
	var rows []dentistRow
	err := r.do(ctx, "fetch dentists", &rows, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(map[string]string{
			"select":  "*",
			"user_id": "eq." + userID,
			"order":   "name.asc",
		}).Get(restPrefix + "/dentists")
	})
	if err != nil {
		return []model.Dentist{}, err
	}

	out := make([]model.Dentist, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

// SaveDentist inserts a dentist with is_verified forced to false.
func (r *REST) SaveDentist(ctx context.Context, userID string, d model.Dentist) (string, error) {
	row := toDentistRow(userID, d)
	row.ID = ""

	var saved []dentistRow
	err := r.do(ctx, "insert dentist", &saved, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Prefer", "return=representation").
			SetBody(row).
			Post(restPrefix + "/dentists")
	})
	if err != nil {
		return "", err
	}
	if len(saved) == 0 || saved[0].ID == "" {
		return "", newError("insert dentist", KindDecode, errors.New("response carried no id"))
	}
	return saved[0].ID, nil
}

// DeleteDentist deletes the dentist scoped to (id, userID).
func (r *REST) DeleteDentist(ctx context.Context, userID, id string) error {
	return r.do(ctx, "delete dentist", nil, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(map[string]string{
			"id":      "eq." + id,
			"user_id": "eq." + userID,
		}).Delete(restPrefix + "/dentists")
	})
}

// FetchTeethStatus returns the statuses stored for the user. Teeth without
// a stored row are absent from the result.
func (r *REST) FetchTeethStatus(ctx context.Context, userID string) (model.TeethStatus, error) {
	var rows []toothRow
	err := r.do(ctx, "fetch teeth status", &rows, func(req *resty.Request) (*resty.Response, error) {
		return req.SetQueryParams(map[string]string{
			"select":  "tooth_id,status",
			"user_id": "eq." + userID,
		}).Get(restPrefix + "/teeth_status")
	})
	if err != nil {
		return model.TeethStatus{}, err
	}
	return teethFromRows(rows), nil
}

// SaveToothStatus upserts the status keyed by (userID, tooth).
func (r *REST) SaveToothStatus(ctx context.Context, userID string, tooth model.ToothID, status model.ToothStatus) error {
	row := toothRow{UserID: userID, ToothID: tooth, Status: status}
	return r.do(ctx, "save tooth status", nil, func(req *resty.Request) (*resty.Response, error) {
		return req.
			SetHeader("Prefer", "resolution=merge-duplicates").
			SetQueryParam("on_conflict", "user_id,tooth_id").
			SetBody(row).
			Post(restPrefix + "/teeth_status")
	})
}
