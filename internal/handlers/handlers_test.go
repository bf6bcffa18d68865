package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/gostore-shop/apiserver/internal/services"
	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/gostore-shop/apiserver/types"
)

const testSecret = "test-secret"

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: map[int]types.User{}}
}

func (f *fakeUserRepo) GetActiveByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok || !user.IsActive {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetActiveByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email && user.IsActive {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	user.IsActive = true
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

// fakeCategoryRepo is an in-memory services.CategoryRepository.
type fakeCategoryRepo struct {
	nextID     int
	categories map[int]types.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{nextID: 1, categories: map[int]types.Category{}}
}

func (f *fakeCategoryRepo) List(ctx context.Context) ([]types.Category, error) {
	out := make([]types.Category, 0, len(f.categories))
	for _, c := range f.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCategoryRepo) Get(ctx context.Context, id int) (types.Category, error) {
	c, ok := f.categories[id]
	if !ok || !c.IsActive {
		return types.Category{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category types.Category) (types.Category, error) {
	category.ID = f.nextID
	category.IsActive = true
	f.nextID++
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category types.Category) (types.Category, error) {
	current, ok := f.categories[category.ID]
	if !ok || !current.IsActive {
		return types.Category{}, store.ErrNotFound
	}
	category.IsActive = true
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) SoftDelete(ctx context.Context, id int) error {
	c, ok := f.categories[id]
	if !ok || !c.IsActive {
		return store.ErrNotFound
	}
	c.IsActive = false
	f.categories[id] = c
	return nil
}

func (f *fakeCategoryRepo) WouldCycle(ctx context.Context, id, newParent int) (bool, error) {
	for cursor := newParent; ; {
		if cursor == id {
			return true, nil
		}
		c, ok := f.categories[cursor]
		if !ok || c.ParentID == nil {
			return false, nil
		}
		cursor = *c.ParentID
	}
}

// fakeProductRepo is an in-memory services.ProductRepository.
type fakeProductRepo struct {
	nextID   int
	products map[int]types.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{nextID: 1, products: map[int]types.Product{}}
}

func (f *fakeProductRepo) active() []types.Product {
	out := make([]types.Product, 0, len(f.products))
	for _, p := range f.products {
		if p.IsActive && p.Stock > 0 {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func paginate(items []types.Product, offset, limit int) []types.Product {
	if offset >= len(items) {
		return []types.Product{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (f *fakeProductRepo) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	items := f.active()
	return paginate(items, offset, limit), len(items), nil
}

func (f *fakeProductRepo) ListByCategory(ctx context.Context, categoryID, offset, limit int) ([]types.Product, int, error) {
	var items []types.Product
	for _, p := range f.active() {
		if p.CategoryID == categoryID {
			items = append(items, p)
		}
	}
	return paginate(items, offset, limit), len(items), nil
}

func (f *fakeProductRepo) Get(ctx context.Context, id int) (types.Product, error) {
	p, ok := f.products[id]
	if !ok || !p.IsActive {
		return types.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProductRepo) Create(ctx context.Context, product types.Product) (types.Product, error) {
	product.ID = f.nextID
	product.IsActive = true
	product.Rating = 0
	f.nextID++
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) Update(ctx context.Context, product types.Product) (types.Product, error) {
	current, ok := f.products[product.ID]
	if !ok || !current.IsActive {
		return types.Product{}, store.ErrNotFound
	}
	product.SellerID = current.SellerID
	product.Rating = current.Rating
	product.IsActive = true
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductRepo) SetImageURL(ctx context.Context, id int, imageURL string) error {
	p, ok := f.products[id]
	if !ok || !p.IsActive {
		return store.ErrNotFound
	}
	p.ImageURL = imageURL
	f.products[id] = p
	return nil
}

func (f *fakeProductRepo) SoftDelete(ctx context.Context, id int) error {
	p, ok := f.products[id]
	if !ok || !p.IsActive {
		return store.ErrNotFound
	}
	p.IsActive = false
	f.products[id] = p
	return nil
}

// fakeReviewRepo is an in-memory services.ReviewRepository. It mirrors
// the storage guarantees: a missing or inactive product reports
// ErrNotFound, a second active review per (product, user) reports
// ErrConflict, and mutations recompute the product rating.
type fakeReviewRepo struct {
	nextID   int
	reviews  map[int]types.Review
	products *fakeProductRepo
}

func newFakeReviewRepo(products *fakeProductRepo) *fakeReviewRepo {
	return &fakeReviewRepo{nextID: 1, reviews: map[int]types.Review{}, products: products}
}

func (f *fakeReviewRepo) List(ctx context.Context) ([]types.Review, error) {
	out := make([]types.Review, 0, len(f.reviews))
	for _, rv := range f.reviews {
		if rv.IsActive {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReviewRepo) Create(ctx context.Context, review types.Review) (types.Review, error) {
	product, ok := f.products.products[review.ProductID]
	if !ok || !product.IsActive {
		return types.Review{}, store.ErrNotFound
	}
	for _, existing := range f.reviews {
		if existing.IsActive && existing.ProductID == review.ProductID && existing.UserID == review.UserID {
			return types.Review{}, store.ErrConflict
		}
	}

	review.ID = f.nextID
	review.IsActive = true
	f.nextID++
	f.reviews[review.ID] = review
	f.recomputeRating(review.ProductID)
	return review, nil
}

func (f *fakeReviewRepo) SoftDelete(ctx context.Context, id int) (int, error) {
	rv, ok := f.reviews[id]
	if !ok || !rv.IsActive {
		return 0, store.ErrNotFound
	}
	rv.IsActive = false
	f.reviews[id] = rv
	f.recomputeRating(rv.ProductID)
	return rv.ProductID, nil
}

func (f *fakeReviewRepo) recomputeRating(productID int) {
	var sum, n int
	for _, rv := range f.reviews {
		if rv.IsActive && rv.ProductID == productID {
			sum += rv.Grade
			n++
		}
	}
	p := f.products.products[productID]
	if n == 0 {
		p.Rating = 0
	} else {
		p.Rating = float64(sum) / float64(n)
	}
	f.products.products[productID] = p
}

// testEnv bundles a fully wired router with its fakes.
type testEnv struct {
	router     *chi.Mux
	users      *fakeUserRepo
	categories *fakeCategoryRepo
	products   *fakeProductRepo
	reviews    *fakeReviewRepo
	auth       *AuthHandler
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	categories := newFakeCategoryRepo()
	products := newFakeProductRepo()
	reviews := newFakeReviewRepo(products)

	userService := services.NewUserService(users)
	categoryService := services.NewCategoryService(categories)
	productService := services.NewProductService(products, categories)
	reviewService := services.NewReviewService(reviews, nil)

	auth := NewAuthHandler(userService, testSecret)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, auth, nil)
	})
	router.Route("/categories", func(r chi.Router) {
		CategoryRouter(r, categoryService, auth.RequireAuth)
	})
	router.Route("/products", func(r chi.Router) {
		ProductRouter(r, productService, auth.RequireAuth)
	})
	router.Route("/reviews", func(r chi.Router) {
		ReviewRouter(r, reviewService, auth.RequireAuth)
	})

	return &testEnv{
		router:     router,
		users:      users,
		categories: categories,
		products:   products,
		reviews:    reviews,
		auth:       auth,
	}
}

// seedUser inserts an active user and returns a bearer token for it.
func (e *testEnv) seedUser(id int, role types.Role) (types.User, string) {
	user := types.User{
		ID:       id,
		Email:    fmt.Sprintf("%s%d@example.com", role, id),
		Role:     role,
		IsActive: true,
	}
	e.users.users[id] = user
	if id >= e.users.nextID {
		e.users.nextID = id + 1
	}
	token, err := issueToken(user, []byte(testSecret), defaultTokenTTL)
	if err != nil {
		panic(err)
	}
	return user, token
}
