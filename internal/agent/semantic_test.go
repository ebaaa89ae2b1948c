package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenticqa/runner/internal/core"
)

func TestExtractTargetText(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		want        string
	}{
		{
			name:        "verb and article stripped",
			instruction: "Click the Login button",
			want:        "Login button",
		},
		{
			name:        "quoted target",
			instruction: `Click the "Sign up" link`,
			want:        `Sign up" link`,
		},
		{
			name:        "single-quoted word",
			instruction: "Click 'Submit'",
			want:        "Submit",
		},
		{
			name:        "fill instruction",
			instruction: "Fill the email field",
			want:        "email field",
		},
		{
			name:        "type verb",
			instruction: "Type into the search input",
			want:        "into search input",
		},
		{
			name:        "stripping is case-insensitive",
			instruction: "CLICK THE submit button",
			want:        "submit button",
		},
		{
			name:        "only verbs and articles",
			instruction: "click the",
			want:        "",
		},
		{
			name:        "empty instruction",
			instruction: "",
			want:        "",
		},
		{
			name:        "whitespace preserved between kept words",
			instruction: "  select   an   option  ",
			want:        "option",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTargetText(tt.instruction))
		})
	}
}

func TestExtractTargetTextCaseSensitiveArticle(t *testing.T) {
	// "THE" is an article regardless of case; "An" likewise.
	assert.Equal(t, "option", ExtractTargetText("Choose An option"))
}

func TestClassifyTarget(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		text        string
		wantKind    core.TargetKind
		wantRole    string
	}{
		{
			name:        "button keyword maps to role",
			instruction: "Click the Login button",
			text:        "Login button",
			wantKind:    core.TargetRole,
			wantRole:    "button",
		},
		{
			name:        "input keyword maps to label",
			instruction: "Fill the email input",
			text:        "email input",
			wantKind:    core.TargetLabel,
		},
		{
			name:        "field keyword maps to label",
			instruction: "Fill the password field",
			text:        "password field",
			wantKind:    core.TargetLabel,
		},
		{
			name:        "link keyword maps to role",
			instruction: "Click the Forgot Password link",
			text:        "Forgot Password link",
			wantKind:    core.TargetRole,
			wantRole:    "link",
		},
		{
			name:        "no keyword falls back to text",
			instruction: "Click Submit",
			text:        "Submit",
			wantKind:    core.TargetText,
		},
		{
			name:        "keyword match is case-insensitive",
			instruction: "Click the LOGIN BUTTON",
			text:        "LOGIN BUTTON",
			wantKind:    core.TargetRole,
			wantRole:    "button",
		},
		{
			name:        "button wins over link when both appear",
			instruction: "Click the link button",
			text:        "link button",
			wantKind:    core.TargetRole,
			wantRole:    "button",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyTarget(tt.instruction, tt.text)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantRole, got.Role)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}
