package ai

import "context"

// Mock is a canned-response client for tests.
type Mock struct {
	// Adjustment is returned from SuggestAdjustment when set.
	Adjustment *AdjustmentDraft
	// Method is returned from RewriteForMethod when set.
	Method *MethodDraft
	// Err is returned from every call when set.
	Err error

	// Track function calls
	AdjustmentCalls []AdjustmentRequest
	MethodCalls     []MethodRequest
}

func (m *Mock) SuggestAdjustment(ctx context.Context, req AdjustmentRequest) (*AdjustmentDraft, error) {
	m.AdjustmentCalls = append(m.AdjustmentCalls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Adjustment != nil {
		draft := *m.Adjustment
		draft.Source = SourceMock
		return &draft, nil
	}
	return &AdjustmentDraft{Title: "Mock adjustment", Bullets: []string{"Do the mock thing"}, Confidence: 0.9, Source: SourceMock}, nil
}

func (m *Mock) RewriteForMethod(ctx context.Context, req MethodRequest) (*MethodDraft, error) {
	m.MethodCalls = append(m.MethodCalls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Method != nil {
		draft := *m.Method
		draft.Source = SourceMock
		return &draft, nil
	}
	return &MethodDraft{Steps: append([]Step(nil), req.Steps...), Source: SourceMock}, nil
}
