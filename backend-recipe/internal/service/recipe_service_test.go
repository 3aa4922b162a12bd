package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/D-Tasker207/gazpacho-backend/backend-recipe/internal/domain"
	"github.com/D-Tasker207/gazpacho-backend/pkg/dto"
	"github.com/D-Tasker207/gazpacho-backend/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecipeRepository struct {
	mock.Mock
}

func (m *mockRecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Recipe, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) CreateBatch(ctx context.Context, recipes []*domain.Recipe) ([]int64, error) {
	args := m.Called(ctx, recipes)
	if args.Error(0) == nil {
		for i, r := range recipes {
			r.ID = int64(100 + i)
		}
	}
	return nil, args.Error(0)
}

func (m *mockRecipeRepository) Search(ctx context.Context, query string, field domain.SearchField) ([]*domain.Recipe, error) {
	args := m.Called(ctx, query, field)
	return args.Get(0).([]*domain.Recipe), args.Error(1)
}

func (m *mockRecipeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) CurrentUser(ctx context.Context, authorization string) (*dto.PublicUser, error) {
	args := m.Called(ctx, authorization)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PublicUser), args.Error(1)
}

type recordingPublisher struct {
	deleted []int64
	err     error
}

func (p *recordingPublisher) PublishRecipeDeleted(ctx context.Context, recipeID int64) error {
	if p.err != nil {
		return p.err
	}
	p.deleted = append(p.deleted, recipeID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fixture struct {
	repo      *mockRecipeRepository
	users     *mockUserDirectory
	publisher *recordingPublisher
	codec     *token.Codec
	svc       RecipeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  "recipe-service-test-access-secret-0001",
		RefreshSecret: "recipe-service-test-refresh-secret-0002",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	f := &fixture{
		repo:      new(mockRecipeRepository),
		users:     new(mockUserDirectory),
		publisher: &recordingPublisher{},
		codec:     codec,
	}
	f.svc = NewRecipeService(f.repo, codec, f.users, f.publisher, &RecipeServiceConfig{MaxBatchSize: 3})
	return f
}

func (f *fixture) bearer(t *testing.T, id int64) string {
	t.Helper()
	tok, err := f.codec.IssueAccessToken(id)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRecipeService_View(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.On("GetByID", mock.Anything, int64(1)).Return(&domain.Recipe{
		ID:          1,
		Name:        "Gazpacho",
		Ingredients: []domain.Ingredient{{Name: "Bread", Allergens: []string{"Gluten"}}},
	}, nil)
	f.repo.On("GetByID", mock.Anything, int64(2)).Return(nil, nil)

	got, err := f.svc.View(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Gazpacho", got.Name)
	assert.Equal(t, []string{"Gluten"}, got.Allergens)

	_, err = f.svc.View(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_GetBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.On("GetByIDs", mock.Anything, []int64{3, 1}).Return([]*domain.Recipe{{ID: 3}, {ID: 1}}, nil)

	got, err := f.svc.GetBatch(ctx, []int64{3, 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)

	_, err = f.svc.GetBatch(ctx, []int64{1, 2, 3, 4})
	assert.ErrorIs(t, err, domain.ErrInvalidRecipe)
}

func TestRecipeService_AddBatch(t *testing.T) {
	f := newFixture(t)
	f.repo.On("CreateBatch", mock.Anything, mock.AnythingOfType("[]*domain.Recipe")).Return(nil)

	got, err := f.svc.AddBatch(context.Background(), []dto.RecipeRequest{
		{Name: "Gazpacho", Ingredients: []dto.IngredientRequest{{Name: "Tomato"}}, Tags: []string{"cold"}},
		{Name: "Salmorejo"},
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(100), got[0].ID)
	assert.Equal(t, []string{"Tomato"}, got[0].Ingredients)
	assert.Equal(t, int64(101), got[1].ID)
}

func TestRecipeService_AddBatch_RejectsBeforeWriting(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddBatch(context.Background(), []dto.RecipeRequest{
		{Name: "Gazpacho"},
		{Name: "Broken", Ingredients: []dto.IngredientRequest{{Name: " "}}},
	})

	assert.ErrorIs(t, err, domain.ErrInvalidRecipe)
	assert.Contains(t, err.Error(), "recipe 1")
	f.repo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)

	got, err := f.svc.AddBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.AddBatch(context.Background(), make([]dto.RecipeRequest, 4))
	assert.ErrorIs(t, err, domain.ErrInvalidRecipe)
}

func TestRecipeService_Search(t *testing.T) {
	tests := []struct {
		searchType string
		want       domain.SearchField
	}{
		{"recipe", domain.SearchByRecipe},
		{"ingredient", domain.SearchByIngredient},
		{"allergen", domain.SearchByAllergen},
		{"", domain.SearchByRecipe},
		{"cuisine", domain.SearchByRecipe},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("type=%q", tt.searchType), func(t *testing.T) {
			f := newFixture(t)
			f.repo.On("Search", mock.Anything, "tom", tt.want).Return([]*domain.Recipe{{ID: 1}}, nil).Once()

			got, err := f.svc.Search(context.Background(), "tom", tt.searchType)

			require.NoError(t, err)
			assert.Len(t, got, 1)
			f.repo.AssertExpectations(t)
		})
	}
}

func TestRecipeService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.bearer(t, 1)
	f.users.On("CurrentUser", mock.Anything, admin).Return(&dto.PublicUser{ID: 1, Admin: true}, nil)
	f.repo.On("Delete", mock.Anything, int64(5)).Return(true, nil)

	require.NoError(t, f.svc.Delete(ctx, admin, 5))
	assert.Equal(t, []int64{5}, f.publisher.deleted)
}

func TestRecipeService_Delete_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.bearer(t, 1)
	member := f.bearer(t, 2)
	refresh, err := f.codec.IssueRefreshToken(1)
	require.NoError(t, err)

	f.users.On("CurrentUser", mock.Anything, admin).Return(&dto.PublicUser{ID: 1, Admin: true}, nil)
	f.users.On("CurrentUser", mock.Anything, member).Return(&dto.PublicUser{ID: 2}, nil)
	f.repo.On("Delete", mock.Anything, int64(404)).Return(false, nil)

	assert.ErrorIs(t, f.svc.Delete(ctx, "", 5), domain.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.Delete(ctx, "Bearer "+refresh, 5), domain.ErrUnauthenticated)
	assert.ErrorIs(t, f.svc.Delete(ctx, member, 5), domain.ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, admin, 404), domain.ErrRecipeNotFound)

	f.repo.AssertNotCalled(t, "Delete", mock.Anything, int64(5))
	assert.Empty(t, f.publisher.deleted)
}

func TestRecipeService_Delete_UserServiceDown(t *testing.T) {
	f := newFixture(t)
	admin := f.bearer(t, 1)
	f.users.On("CurrentUser", mock.Anything, admin).Return(nil, domain.ErrUserServiceUnavailable)

	err := f.svc.Delete(context.Background(), admin, 5)

	assert.ErrorIs(t, err, domain.ErrUserServiceUnavailable)
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRecipeService_Delete_PublishFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	admin := f.bearer(t, 1)
	f.users.On("CurrentUser", mock.Anything, admin).Return(&dto.PublicUser{ID: 1, Admin: true}, nil)
	f.repo.On("Delete", mock.Anything, int64(5)).Return(true, nil)

	assert.NoError(t, f.svc.Delete(context.Background(), admin, 5))
}
