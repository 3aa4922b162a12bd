package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterRequest_ValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"simple", "a@x.com", true},
		{"plus and dots", "first.last+tag@mail.example.org", true},
		{"missing at", "ax.com", false},
		{"missing tld", "a@x", false},
		{"empty", "", false},
		{"spaces", "a b@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Email: tt.email}
			got, msg := req.ValidateEmail()
			assert.Equal(t, tt.want, got)
			if !tt.want {
				assert.Equal(t, "Invalid email format", msg)
			}
		})
	}
}

func TestRegisterRequest_ValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
		wantMsg  string
	}{
		{"short password is allowed", "pw1", true, ""},
		{"empty", "", false, "Password is required"},
		{"exactly 72 bytes", strings.Repeat("a", 72), true, ""},
		{"over 72 bytes", strings.Repeat("a", 73), false, "Password must not exceed 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Password: tt.password}
			got, msg := req.ValidatePassword()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestRecipeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     RecipeRequest
		want    bool
		wantMsg string
	}{
		{
			name: "valid",
			req: RecipeRequest{
				Name:        "Gazpacho",
				Ingredients: []IngredientRequest{{Name: "Tomato"}, {Name: "Bread", Allergens: []string{"Gluten"}}},
				Steps:       []string{"Blend"},
				Tags:        []string{"cold"},
			},
			want: true,
		},
		{name: "blank name", req: RecipeRequest{Name: "  "}, want: false, wantMsg: "Recipe name is required"},
		{
			name:    "blank ingredient",
			req:     RecipeRequest{Name: "Soup", Ingredients: []IngredientRequest{{Name: ""}}},
			want:    false,
			wantMsg: "Ingredient name is required",
		},
		{
			name:    "blank allergen",
			req:     RecipeRequest{Name: "Soup", Ingredients: []IngredientRequest{{Name: "Milk", Allergens: []string{""}}}},
			want:    false,
			wantMsg: "Allergen name must not be empty",
		},
		{name: "blank tag", req: RecipeRequest{Name: "Soup", Tags: []string{" "}}, want: false, wantMsg: "Tag name must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := tt.req.Validate()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestNewTokenResponse(t *testing.T) {
	resp := NewTokenResponse("a", "r")
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "a", resp.AccessToken)
	assert.Equal(t, "r", resp.RefreshToken)
}
