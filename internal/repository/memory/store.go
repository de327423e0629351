// Package memory implements repository.Store in process memory. Transactions
// work on a copy of the state that replaces the original only on success.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"
)

var _ repository.Store = (*Store)(nil)

type memberKey struct {
	userID    string
	companyID string
}

type state struct {
	requests      map[string]models.Request
	requestOrder  []string
	offers        map[string]models.Offer
	offerOrder    []string
	counterOffers map[string]models.CounterOffer
	counterOrder  []string
	orders        map[string]models.Order
	orderOrder    []string
	history       map[string][]models.OrderStatusHistory

	members    map[memberKey]models.Role
	companies  map[string]bool
	categories map[string]string // id -> parent id
	units      map[string]bool
}

func newState() *state {
	return &state{
		requests:      make(map[string]models.Request),
		offers:        make(map[string]models.Offer),
		counterOffers: make(map[string]models.CounterOffer),
		orders:        make(map[string]models.Order),
		history:       make(map[string][]models.OrderStatusHistory),
		members:       make(map[memberKey]models.Role),
		companies:     make(map[string]bool),
		categories:    make(map[string]string),
		units:         make(map[string]bool),
	}
}

func (s *state) clone() *state {
	out := &state{
		requests:      maps.Clone(s.requests),
		requestOrder:  slices.Clone(s.requestOrder),
		offers:        maps.Clone(s.offers),
		offerOrder:    slices.Clone(s.offerOrder),
		counterOffers: maps.Clone(s.counterOffers),
		counterOrder:  slices.Clone(s.counterOrder),
		orders:        make(map[string]models.Order, len(s.orders)),
		orderOrder:    slices.Clone(s.orderOrder),
		history:       make(map[string][]models.OrderStatusHistory, len(s.history)),
		members:       maps.Clone(s.members),
		companies:     maps.Clone(s.companies),
		categories:    maps.Clone(s.categories),
		units:         maps.Clone(s.units),
	}
	for id, o := range s.orders {
		out.orders[id] = cloneOrder(o)
	}
	for id, h := range s.history {
		out.history[id] = slices.Clone(h)
	}
	return out
}

// Store - хранилище в памяти для тестов и локального запуска.
type Store struct {
	mu sync.Mutex
	st *state
	repos
}

// NewStore возвращает пустое хранилище.
func NewStore() *Store {
	s := &Store{st: newState()}
	s.repos = repos{store: s}
	return s
}

// WithinTx выполняет fn под эксклюзивной блокировкой на копии состояния.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	if err := fn(repos{store: s, tx: tx}); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// AddCompany регистрирует компанию в справочнике.
func (s *Store) AddCompany(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.companies[id] = true
}

// AddMember добавляет подтвержденного участника компании.
func (s *Store) AddMember(userID, companyID string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.companies[companyID] = true
	s.st.members[memberKey{userID: userID, companyID: companyID}] = role
}

// AddCategory регистрирует категорию; parentID пуст для корневой.
func (s *Store) AddCategory(id, parentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.categories[id] = parentID
}

// AddUnit регистрирует единицу измерения.
func (s *Store) AddUnit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.units[id] = true
}

type repos struct {
	store *Store
	tx    *state
}

func (r repos) with(fn func(st *state) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.st)
}

func (r repos) Requests() repository.RequestRepository           { return requestRepo{r} }
func (r repos) Offers() repository.OfferRepository               { return offerRepo{r} }
func (r repos) CounterOffers() repository.CounterOfferRepository { return counterOfferRepo{r} }
func (r repos) Orders() repository.OrderRepository               { return orderRepo{r} }
func (r repos) Members() repository.MembershipRepository         { return memberRepo{r} }
func (r repos) Reference() repository.ReferenceRepository        { return referenceRepo{r} }

type requestRepo struct{ repos }

func (r requestRepo) Create(_ context.Context, req *models.Request) error {
	return r.with(func(st *state) error {
		if _, ok := st.requests[req.ID]; ok {
			return fmt.Errorf("%w: purchase_request_pkey", repository.ErrDuplicate)
		}
		st.requests[req.ID] = *req
		st.requestOrder = append(st.requestOrder, req.ID)
		return nil
	})
}

func (r requestRepo) Get(_ context.Context, id string, _ bool) (*models.Request, error) {
	var out models.Request
	err := r.with(func(st *state) error {
		req, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r requestRepo) Update(_ context.Context, req *models.Request) error {
	return r.with(func(st *state) error {
		cur, ok := st.requests[req.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Status = req.Status
		cur.CancellationReason = req.CancellationReason
		cur.UpdatedAt = req.UpdatedAt
		st.requests[req.ID] = cur
		return nil
	})
}

func (r requestRepo) List(_ context.Context, filter models.RequestFilter) ([]models.Request, error) {
	var out []models.Request
	err := r.with(func(st *state) error {
		for i := len(st.requestOrder) - 1; i >= 0; i-- {
			req := st.requests[st.requestOrder[i]]
			if filter.BuyerCompanyID != "" && req.BuyerCompanyID != filter.BuyerCompanyID {
				continue
			}
			if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, req.Status) {
				continue
			}
			out = append(out, req)
		}
		return nil
	})
	return page(out, filter.Limit, filter.Offset), err
}

func (r requestRepo) ListExpired(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.with(func(st *state) error {
		for _, id := range st.requestOrder {
			req := st.requests[id]
			if req.Status == models.RequestOpen && !req.ExpiresAt.After(now) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

type offerRepo struct{ repos }

func (r offerRepo) Create(_ context.Context, offer *models.Offer) error {
	return r.with(func(st *state) error {
		for _, id := range st.offerOrder {
			o := st.offers[id]
			if o.RequestID == offer.RequestID && o.SupplierCompanyID == offer.SupplierCompanyID &&
				slices.Contains(models.OccupyingOfferStatuses, o.Status) {
				return fmt.Errorf("%w: offer_active_supplier_idx", repository.ErrDuplicate)
			}
		}
		st.offers[offer.ID] = *offer
		st.offerOrder = append(st.offerOrder, offer.ID)
		return nil
	})
}

func (r offerRepo) Get(_ context.Context, id string, _ bool) (*models.Offer, error) {
	var out models.Offer
	err := r.with(func(st *state) error {
		offer, ok := st.offers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = offer
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r offerRepo) Update(_ context.Context, offer *models.Offer) error {
	return r.with(func(st *state) error {
		cur, ok := st.offers[offer.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Status = offer.Status
		cur.Reason = offer.Reason
		cur.Price = offer.Price
		cur.Volume = offer.Volume
		cur.DeliveryDate = offer.DeliveryDate
		cur.UpdatedAt = offer.UpdatedAt
		st.offers[offer.ID] = cur
		return nil
	})
}

func (r offerRepo) ListByRequest(_ context.Context, requestID string, statuses []models.OfferStatus) ([]models.Offer, error) {
	var out []models.Offer
	err := r.with(func(st *state) error {
		for _, id := range st.offerOrder {
			o := st.offers[id]
			if o.RequestID != requestID {
				continue
			}
			if len(statuses) > 0 && !slices.Contains(statuses, o.Status) {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

func (r offerRepo) HasOccupying(_ context.Context, requestID, supplierCompanyID string) (bool, error) {
	var found bool
	err := r.with(func(st *state) error {
		for _, o := range st.offers {
			if o.RequestID == requestID && o.SupplierCompanyID == supplierCompanyID &&
				slices.Contains(models.OccupyingOfferStatuses, o.Status) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r offerRepo) ListExpired(_ context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.with(func(st *state) error {
		for _, id := range st.offerOrder {
			o := st.offers[id]
			if o.Status == models.OfferPending && !o.ExpiresAt.After(now) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

type counterOfferRepo struct{ repos }

func (r counterOfferRepo) Create(_ context.Context, co *models.CounterOffer) error {
	return r.with(func(st *state) error {
		st.counterOffers[co.ID] = *co
		st.counterOrder = append(st.counterOrder, co.ID)
		return nil
	})
}

func (r counterOfferRepo) Get(_ context.Context, id string, _ bool) (*models.CounterOffer, error) {
	var out models.CounterOffer
	err := r.with(func(st *state) error {
		co, ok := st.counterOffers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = co
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r counterOfferRepo) Update(_ context.Context, co *models.CounterOffer) error {
	return r.with(func(st *state) error {
		cur, ok := st.counterOffers[co.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Status = co.Status
		cur.UpdatedAt = co.UpdatedAt
		st.counterOffers[co.ID] = cur
		return nil
	})
}

func (r counterOfferRepo) ListByOffer(_ context.Context, offerID string) ([]models.CounterOffer, error) {
	var out []models.CounterOffer
	err := r.with(func(st *state) error {
		for _, id := range st.counterOrder {
			if co := st.counterOffers[id]; co.OfferID == offerID {
				out = append(out, co)
			}
		}
		return nil
	})
	return out, err
}

type orderRepo struct{ repos }

func (r orderRepo) Create(_ context.Context, order *models.Order) error {
	return r.with(func(st *state) error {
		for _, o := range st.orders {
			if o.RequestID == order.RequestID || o.OfferID == order.OfferID {
				return fmt.Errorf("%w: purchase_order_request_idx", repository.ErrDuplicate)
			}
		}
		st.orders[order.ID] = cloneOrder(*order)
		st.orderOrder = append(st.orderOrder, order.ID)
		return nil
	})
}

func (r orderRepo) Get(_ context.Context, id string, _ bool) (*models.Order, error) {
	var out models.Order
	err := r.with(func(st *state) error {
		order, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneOrder(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r orderRepo) Update(_ context.Context, order *models.Order) error {
	return r.with(func(st *state) error {
		cur, ok := st.orders[order.ID]
		if !ok {
			return repository.ErrNotFound
		}
		next := cloneOrder(*order)
		next.TotalAmount = cur.TotalAmount
		st.orders[order.ID] = next
		return nil
	})
}

func (r orderRepo) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]models.Order, error) {
	var out []models.Order
	err := r.with(func(st *state) error {
		for i := len(st.orderOrder) - 1; i >= 0; i-- {
			o := st.orders[st.orderOrder[i]]
			if o.BuyerCompanyID == companyID || o.SupplierCompanyID == companyID {
				out = append(out, cloneOrder(o))
			}
		}
		return nil
	})
	return page(out, limit, offset), err
}

func (r orderRepo) CountByRequest(_ context.Context, requestID string) (int, error) {
	var count int
	err := r.with(func(st *state) error {
		for _, o := range st.orders {
			if o.RequestID == requestID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r orderRepo) AppendHistory(_ context.Context, entry *models.OrderStatusHistory) error {
	return r.with(func(st *state) error {
		st.history[entry.OrderID] = append(st.history[entry.OrderID], *entry)
		return nil
	})
}

func (r orderRepo) ListHistory(_ context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	var out []models.OrderStatusHistory
	err := r.with(func(st *state) error {
		out = slices.Clone(st.history[orderID])
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type memberRepo struct{ repos }

func (r memberRepo) HasRole(_ context.Context, userID, companyID string, role models.Role) (bool, error) {
	var ok bool
	err := r.with(func(st *state) error {
		got, found := st.members[memberKey{userID: userID, companyID: companyID}]
		ok = found && (role == models.RoleAny || got == role)
		return nil
	})
	return ok, err
}

type referenceRepo struct{ repos }

func (r referenceRepo) CompanyExists(_ context.Context, companyID string) (bool, error) {
	var ok bool
	err := r.with(func(st *state) error {
		ok = st.companies[companyID]
		return nil
	})
	return ok, err
}

func (r referenceRepo) CategoryExists(_ context.Context, categoryID string, subcategoryID *string) (bool, error) {
	var ok bool
	err := r.with(func(st *state) error {
		if _, found := st.categories[categoryID]; !found {
			return nil
		}
		if subcategoryID == nil {
			ok = true
			return nil
		}
		parent, found := st.categories[*subcategoryID]
		ok = found && parent == categoryID
		return nil
	})
	return ok, err
}

func (r referenceRepo) UnitExists(_ context.Context, unitID string) (bool, error) {
	var ok bool
	err := r.with(func(st *state) error {
		ok = st.units[unitID]
		return nil
	})
	return ok, err
}

func cloneOrder(o models.Order) models.Order {
	o.DeliveryPhotoKeys = slices.Clone(o.DeliveryPhotoKeys)
	if o.DeliveryPhotoKeys == nil {
		o.DeliveryPhotoKeys = []string{}
	}
	return o
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
