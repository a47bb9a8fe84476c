package ai

import "context"

// MockProvider is a test double for the generative-model boundary.
type MockProvider struct {
	Response    string
	Err         error
	Calls       int
	FailFirst   int // fail this many calls before succeeding
	LastRequest *CompletionRequest
}

func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.Calls++
	m.LastRequest = &req
	if m.FailFirst >= m.Calls {
		return CompletionResponse{}, errMockFailure
	}
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	return CompletionResponse{
		Content:      m.Response,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(m.Response),
	}, nil
}

func (m *MockProvider) HealthCheck(_ context.Context) error { return m.Err }

type mockError string

func (e mockError) Error() string { return string(e) }

const errMockFailure = mockError("transient mock failure")
