package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(ctx, templateName, to, subject, data)
	return args.Error(0)
}
