package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestone-framework/lodestone/framework/adapters/search"
	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// Article тестовая сущность
type Article struct {
	ID    string `json:"id" search:"id"`
	Title string `json:"title"`
	Views int64  `json:"views"`
}

func newArticleRepo(t *testing.T, opts ...Option) (*SearchRepository[Article], *search.InMemoryOperations[Article]) {
	t.Helper()

	provider, err := metadata.Resolve[Article]()
	require.NoError(t, err)

	ops := search.NewInMemoryOperations[Article](search.DefaultInMemoryConfig(), provider.Meta())
	repo, err := New[Article](context.Background(), ops, provider, opts...)
	require.NoError(t, err)
	return repo, ops
}

func seedArticles(t *testing.T, repo *SearchRepository[Article]) []Article {
	t.Helper()

	articles := []Article{
		{ID: "a-1", Title: "go concurrency patterns", Views: 100},
		{ID: "a-2", Title: "go generics in practice", Views: 50},
		{ID: "a-3", Title: "distributed tracing basics", Views: 10},
	}
	_, err := repo.SaveAll(context.Background(), articles)
	require.NoError(t, err)
	return articles
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	provider, err := metadata.Resolve[Article]()
	require.NoError(t, err)
	ops := search.NewInMemoryOperations[Article](search.DefaultInMemoryConfig(), provider.Meta())

	_, err = New[Article](ctx, nil, provider)
	assert.True(t, core.IsCode(err, core.ErrInvalidConfig))

	_, err = New[Article](ctx, ops, nil)
	assert.True(t, core.IsCode(err, core.ErrInvalidConfig))

	_, err = New[Article](ctx, ops, provider, WithRefreshPolicy("eventually"))
	assert.True(t, core.IsCode(err, core.ErrInvalidConfig))
}

func TestSearchRepository_SaveAndFindByID(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &Article{ID: "a-1", Title: "go concurrency patterns"})
	require.NoError(t, err)
	assert.Equal(t, "a-1", saved.ID)

	found, err := repo.FindByID(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "go concurrency patterns", found.Title)
}

func TestSearchRepository_FindByIDAbsent(t *testing.T) {
	repo, _ := newArticleRepo(t)

	found, err := repo.FindByID(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, found, "absence is not an error")
}

func TestSearchRepository_FindByIDEmptyID(t *testing.T) {
	repo, _ := newArticleRepo(t)

	_, err := repo.FindByID(context.Background(), "")
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_SaveNilEntity(t *testing.T) {
	repo, _ := newArticleRepo(t)

	_, err := repo.Save(context.Background(), nil)
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_SaveGeneratesID(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	saved, err := repo.Save(ctx, &Article{Title: "untitled draft"})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID, "repository must assign a generated id")

	found, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "untitled draft", found.Title)
}

func TestSearchRepository_Exists(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "a-1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "nonexistent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchRepository_Count(t *testing.T) {
	repo, _ := newArticleRepo(t)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	seedArticles(t, repo)

	count, err = repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSearchRepository_FindAll(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	items, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestSearchRepository_FindAllSorted(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	items, err := repo.FindAllSorted(context.Background(), query.Desc("views"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a-1", items[0].ID)
	assert.Equal(t, "a-3", items[2].ID)
}

func TestSearchRepository_FindAllPage(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	page, err := repo.FindAllPage(context.Background(), query.NewPageRequest(1, 2, query.Asc("views")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a-2", page.Items[0].ID)
	assert.Equal(t, "a-1", page.Items[1].ID)
}

func TestSearchRepository_FindAllByID(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	_, err := repo.FindAllByID(ctx, nil)
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))

	items, err := repo.FindAllByID(ctx, []string{})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = repo.FindAllByID(ctx, []string{"a-1", "a-3", "nonexistent"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSearchRepository_FindAllByIDDefaultPage(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	ids := make([]string, 0, 12)
	articles := make([]Article, 0, 12)
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("b-%02d", i)
		ids = append(ids, id)
		articles = append(articles, Article{ID: id, Title: "bulk article"})
	}
	_, err := repo.SaveAll(ctx, articles)
	require.NoError(t, err)

	// Выборка не подгоняется под количество идентификаторов
	items, err := repo.FindAllByID(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, items, query.DefaultPageSize)
}

func TestSearchRepository_SaveAllValidation(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	_, err := repo.SaveAll(ctx, nil)
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))

	_, err = repo.SaveAll(ctx, []Article{})
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_FindAllEmptyIndex(t *testing.T) {
	repo, _ := newArticleRepo(t)

	items, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchRepository_IndexAlias(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	saved, err := repo.Index(ctx, &Article{ID: "a-1", Title: "indexed directly"})
	require.NoError(t, err)
	assert.Equal(t, "a-1", saved.ID)

	exists, err := repo.Exists(ctx, "a-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSearchRepository_SearchEmptyIndex(t *testing.T) {
	repo, _ := newArticleRepo(t)

	page, err := repo.Search(context.Background(), query.Match("title", "go"))
	require.NoError(t, err)
	assert.True(t, page.IsEmpty())
	assert.Equal(t, int64(0), page.Total)
}

func TestSearchRepository_SearchReturnsBackendPage(t *testing.T) {
	repo, ops := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	page, err := repo.Search(ctx, query.Match("title", "go"))
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	// Страница возвращается как есть: total совпадает с ответом backend
	direct, err := ops.Search(ctx, query.Search{
		Predicate: query.Match("title", "go"),
		Page:      query.NewPageRequest(0, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, direct.Total, page.Total)
	assert.Equal(t, int64(2), page.Total)
}

func TestSearchRepository_SearchNoMatches(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	// Непустой индекс, но предикат не совпадает ни с одним документом
	page, err := repo.Search(context.Background(), query.Match("title", "kubernetes"))
	require.NoError(t, err)
	assert.True(t, page.IsEmpty())
	assert.Equal(t, int64(0), page.Total)
}

func TestSearchRepository_SearchPageAccurateTotal(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	page, err := repo.SearchPage(context.Background(), query.Match("title", "go"), query.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
}

func TestSearchRepository_SearchQuery(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)

	gte := 50.0
	page, err := repo.SearchQuery(context.Background(), query.NewSearch(
		query.And(query.Match("title", "go"), query.Range("views", &gte, nil)),
		query.NewPageRequest(0, 10, query.Desc("views")),
	))
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "a-1", page.Items[0].ID)
}

func TestSearchRepository_SearchQueryDefaultsZeroPage(t *testing.T) {
	repo, _ := newArticleRepo(t)
	ctx := context.Background()

	articles := make([]Article, 0, 12)
	for i := 0; i < 12; i++ {
		articles = append(articles, Article{ID: fmt.Sprintf("b-%02d", i), Title: "bulk article"})
	}
	_, err := repo.SaveAll(ctx, articles)
	require.NoError(t, err)

	page, err := repo.SearchQuery(ctx, query.Search{Predicate: query.MatchAll()})
	require.NoError(t, err)
	assert.Len(t, page.Items, query.DefaultPageSize)
	assert.Equal(t, int64(12), page.Total)
}

func TestSearchRepository_SearchSimilar(t *testing.T) {
	repo, _ := newArticleRepo(t)
	articles := seedArticles(t, repo)
	ctx := context.Background()

	page, err := repo.SearchSimilar(ctx, articles[0], []string{"title"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Len())
	assert.Equal(t, "a-2", page.Items[0].ID)

	_, err = repo.SearchSimilarPage(ctx, Article{Title: "no id"}, nil, query.DefaultPage())
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_DeleteByID(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.DeleteByID(ctx, "a-1"))

	found, err := repo.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Nil(t, found)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Удаление отсутствующего документа не ошибка
	assert.NoError(t, repo.DeleteByID(ctx, "a-1"))

	err = repo.DeleteByID(ctx, "")
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_DeleteEntity(t *testing.T) {
	repo, _ := newArticleRepo(t)
	articles := seedArticles(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, articles[0]))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = repo.Delete(ctx, Article{Title: "no id"})
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_DeleteMany(t *testing.T) {
	repo, _ := newArticleRepo(t)
	articles := seedArticles(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.DeleteMany(ctx, articles[:2]))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = repo.DeleteMany(ctx, nil)
	assert.True(t, core.IsCode(err, core.ErrInvalidUsage))
}

func TestSearchRepository_DeleteAll(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.DeleteAll(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestSearchRepository_DeleteByQuery(t *testing.T) {
	repo, _ := newArticleRepo(t)
	seedArticles(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.DeleteByQuery(ctx, query.Match("title", "go")))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSearchRepository_DeferredRefresh(t *testing.T) {
	repo, ops := newArticleRepo(t, WithRefreshPolicy(RefreshDeferred))
	ctx := context.Background()

	_, err := repo.Save(ctx, &Article{ID: "a-1", Title: "deferred"})
	require.NoError(t, err)

	// Запись еще не закоммичена в поисковое представление
	direct, err := ops.Count(ctx, query.Search{Predicate: query.MatchAll()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), direct)

	// Чтение через репозиторий выполняет отложенный refresh
	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSearchRepository_NoneRefresh(t *testing.T) {
	repo, _ := newArticleRepo(t, WithRefreshPolicy(RefreshNone))
	ctx := context.Background()

	_, err := repo.Save(ctx, &Article{ID: "a-1", Title: "unmanaged"})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "repository must not refresh on its own")

	require.NoError(t, repo.Refresh(ctx))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSearchRepository_ComponentIdentity(t *testing.T) {
	repo, _ := newArticleRepo(t)

	assert.Equal(t, "search-repository:article", repo.Name())
	assert.Equal(t, core.ComponentTypeRepository, repo.Type())
}
