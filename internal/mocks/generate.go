// Package mocks provides mock implementations for testing the runner.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the core ports. The mocks are generated using go:generate directives and
// provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	page := mocks.NewMockPageDriver(ctrl)
//	page.EXPECT().Click(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for PageDriver interface from internal/core package.
// This creates MockPageDriver with methods for all PageDriver interface methods:
// Navigate, Click, Fill, Content, Screenshot, Close
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=page_driver_mock.go github.com/agenticqa/runner/internal/core PageDriver
