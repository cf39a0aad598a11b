package api

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aelexs/symptomcheck/internal/domain"
)

type predictBody struct {
	Symptoms []string `json:"symptoms"`
}

// Disease is one candidate returned by the service.
type Disease struct {
	Disease      string `json:"disease"`
	MatchPercent int    `json:"match_percent"`
}

// Prediction is the body of a successful POST /predict_disease.
type Prediction struct {
	ValidSymptoms   []string          `json:"valid_symptoms"`
	InvalidSymptoms []string          `json:"invalid_symptoms"`
	Diseases        []Disease         `json:"diseases"`
	Suggestions     map[string]string `json:"suggestions"`
}

// Predict submits symptoms for classification. Symptoms are passed through
// unvalidated. Without a stored session no request is sent: the user is told
// to log in, sent to the login route, and ErrLoginRequired is returned.
func (c *Client) Predict(ctx context.Context, symptoms []string) (Prediction, error) {
	const op = "predict"
	ctx, span := tracer.Start(ctx, "api.predict")
	defer span.End()
	span.SetAttributes(attribute.Int("symptoms.count", len(symptoms)))

	cred, ok, err := c.loadSession(ctx, op)
	if err != nil {
		return Prediction{}, err
	}
	if !ok {
		c.notifier.Notify(ctx, domain.MsgMustLogin)
		c.navigator.Navigate(ctx, domain.RouteLogin)
		return Prediction{}, c.precondition(ctx, op, domain.ErrLoginRequired)
	}

	if symptoms == nil {
		symptoms = []string{}
	}
	resp, err := c.do(ctx, op, http.MethodPost, pathPredict, predictBody{Symptoms: symptoms}, &cred)
	if err != nil {
		return Prediction{}, err
	}

	var p Prediction
	if err := decode(op, resp, &p, domain.MsgPredictFailed); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Prediction{}, err
	}
	return p, nil
}
