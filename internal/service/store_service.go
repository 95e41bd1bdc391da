package service

import (
	"context"
	"fmt"
	"strings"

	"engage/internal/domain"
	"engage/internal/repository"
	"go.uber.org/zap"
)

type storeService struct {
	tx            repository.Transactor
	items         repository.ItemRepository
	users         repository.UserRepository
	notifications NotificationService
	logger        *zap.Logger
}

// NewStoreService creates the points store service
func NewStoreService(repos *repository.Repositories, notifications NotificationService, logger *zap.Logger) StoreService {
	return &storeService{
		tx:            repos.Tx,
		items:         repos.Item,
		users:         repos.User,
		notifications: notifications,
		logger:        logger,
	}
}

func (s *storeService) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.items.List(ctx)
}

func (s *storeService) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrItemNotFound
	}
	return item, nil
}

func (s *storeService) CreateItem(ctx context.Context, actor *domain.User, input domain.ItemInput) (*domain.Item, error) {
	if !actor.CanModerate() {
		return nil, domain.ErrUnauthorized
	}
	item := &domain.Item{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Image:       input.Image,
		Price:       input.Price,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Checkout prices the lines and debits the total from actor's balance. The debit is a
// single conditional update so a concurrent spend can never overdraw the balance.
// Lifetime points are not affected.
func (s *storeService) Checkout(ctx context.Context, actor *domain.User, req domain.CheckoutRequest) (*domain.CheckoutResult, error) {
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}

	quantities, order, err := mergeLines(req.Lines)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	result := &domain.CheckoutResult{Lines: make([]domain.OrderLine, 0, len(order))}
	for _, id := range order {
		item, ok := items[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", domain.ErrItemNotFound, id)
		}
		line := domain.OrderLine{Item: item, Quantity: quantities[id], LineTotal: item.Price * quantities[id]}
		result.Lines = append(result.Lines, line)
		result.Total += line.LineTotal
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		balance, ok, err := s.users.Debit(ctx, actor.ID, result.Total)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInsufficientBalance
		}
		result.Balance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(ctx, actor.ID, "Order confirmed",
		fmt.Sprintf("Your order of %d item(s) for %d points has been placed.", len(result.Lines), result.Total))

	s.logger.Info("Checkout completed",
		zap.Int64("user_id", actor.ID),
		zap.Int("total", result.Total),
		zap.Int("balance", result.Balance))
	return result, nil
}

// mergeLines sums quantities per item, keeping first-seen order
func mergeLines(lines []domain.CheckoutLine) (map[int64]int, []int64, error) {
	quantities := make(map[int64]int, len(lines))
	order := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, nil, domain.ErrInvalidQuantity
		}
		if _, seen := quantities[l.ItemID]; !seen {
			order = append(order, l.ItemID)
		}
		quantities[l.ItemID] += l.Quantity
	}
	if len(order) == 0 {
		return nil, nil, domain.ErrInvalidQuantity
	}
	return quantities, order, nil
}
