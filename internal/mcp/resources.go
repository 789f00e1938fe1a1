package mcp

import (
	"context"
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/triage"
)

// Resource URIs.
const (
	ModalitiesURI      = "triage://modalities"
	GatingPoliciesURI  = "triage://gating-policies"
	FeedbackSummaryURI = "triage://feedback/summary"
)

type policyInfo struct {
	Name        string `json:"name"`
	Default     bool   `json:"default"`
	Description string `json:"description"`
}

var gatingPolicies = []policyInfo{
	{
		Name:        string(triage.GatingPolicyMonotonicMax),
		Description: "Each modality takes the most restrictive decision of all matched rules.",
	},
	{
		Name: string(triage.GatingPolicySequentialOverwrite),
		Description: "Rules run in order and some assign the decision outright, as in the legacy screening tool. " +
			"A later rule can relax an earlier restriction.",
	},
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         ModalitiesURI,
		Name:        "modalities",
		Description: "Modalities that receive a gating decision, with family and display name.",
		MIMEType:    "application/json",
	}, func(context.Context, *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		return jsonResource(ModalitiesURI, domain.ModalityCatalogue())
	})

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         GatingPoliciesURI,
		Name:        "gating-policies",
		Description: "Gating policies and the one this server uses.",
		MIMEType:    "application/json",
	}, func(context.Context, *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		policies := make([]policyInfo, len(gatingPolicies))
		copy(policies, gatingPolicies)
		for i := range policies {
			policies[i].Default = policies[i].Name == s.analysis.Policy().String()
		}
		return jsonResource(GatingPoliciesURI, policies)
	})

	if s.feedback == nil {
		return
	}

	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         FeedbackSummaryURI,
		Name:        "feedback-summary",
		Description: "Per-modality counts of clinician agreement and overrides.",
		MIMEType:    "application/json",
	}, func(ctx context.Context, _ *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
		summary, err := s.feedback.Summary(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Failed to read feedback summary")
			return nil, err
		}
		return jsonResource(FeedbackSummaryURI, summary)
	})
}

func jsonResource(uri string, v any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
