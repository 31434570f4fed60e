package reconcile

import (
	"time"

	"github.com/storefront/realtime/internal/core/domain"
)

// merge applies a decoded payload to the cache. Every branch either
// overwrites or inserts by entity id, so applying the same payload twice
// leaves the cache as applying it once. voteUpdate is the one counter; it is
// counted once per event id and ignored without one.
//
// userActivityLog payloads never reach merge; they are batched by the
// ActivityBuffer and land through mergeActivity.
func (c *Cache) merge(ev domain.DomainEvent, payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch p := payload.(type) {
	case *domain.NewNotificationPayload:
		return c.upsertNotification(p.Notification)
	case *domain.NotificationReadPayload:
		for _, n := range c.notifications {
			if n.ID == p.NotificationID {
				changed := !n.Read
				n.Read = true
				return changed
			}
		}
	case *domain.NotificationDeletedPayload:
		return c.removeNotification(p.NotificationID)

	case *domain.OrderStatusUpdatePayload:
		o, ok := c.orders[p.OrderID]
		if !ok || p.UpdatedAt.Before(o.UpdatedAt) {
			return false
		}
		o.Status = p.Status
		o.UpdatedAt = p.UpdatedAt
		return true
	case *domain.NewOrderPayload:
		if o, ok := c.orders[p.Order.ID]; ok && p.Order.UpdatedAt.Before(o.UpdatedAt) {
			return false
		}
		order := p.Order
		c.orders[order.ID] = &order
		return true
	case *domain.CouponAppliedPayload:
		if o, ok := c.orders[p.OrderID]; ok {
			o.CouponCode = p.CouponCode
			return true
		}

	case *domain.PriceUpdatePayload:
		if pr, ok := c.products[p.ProductID]; ok {
			pr.BasePrice = p.BasePrice
			pr.CurrentPrice = p.CurrentPrice
			return true
		}

	case *domain.NewQuestionPayload:
		q, ok := c.questions[p.QuestionID]
		if !ok {
			q = &domain.Question{ID: p.QuestionID, Answers: make(map[string]*domain.Answer)}
			c.questions[p.QuestionID] = q
		}
		q.ProductID = p.ProductID
		q.UserID = p.UserID
		q.Text = p.Text
		return true
	case *domain.NewAnswerPayload:
		q, ok := c.questions[p.QuestionID]
		if !ok {
			return false
		}
		a, ok := q.Answers[p.AnswerID]
		if !ok {
			a = &domain.Answer{ID: p.AnswerID, QuestionID: p.QuestionID}
			q.Answers[p.AnswerID] = a
		}
		a.UserID = p.UserID
		a.Text = p.Text
		return true
	case *domain.VoteUpdatePayload:
		a := c.answer(p.QuestionID, p.AnswerID)
		if a == nil || !c.recordVote(p.AnswerID, ev.ID) {
			return false
		}
		if p.VoteType == "up" {
			a.Upvotes++
		} else {
			a.Downvotes++
		}
		return true
	case *domain.HelpfulAnswerPayload:
		q, ok := c.questions[p.QuestionID]
		if !ok || q.Answers[p.AnswerID] == nil {
			return false
		}
		for id, a := range q.Answers {
			a.Helpful = id == p.AnswerID
		}
		return true

	case *domain.NewModerationFlagPayload:
		f, ok := c.flags[p.FlagID]
		if !ok {
			f = &domain.ModerationFlag{ID: p.FlagID, Status: domain.ModerationPending}
			c.flags[p.FlagID] = f
		}
		f.ContentType = p.ContentType
		f.ContentID = p.ContentID
		f.Reason = p.Reason
		return true
	case *domain.ModerationStatusUpdatePayload:
		if f, ok := c.flags[p.FlagID]; ok {
			f.Status = p.Status
			return true
		}

	case *domain.LowStockPayload:
		a, ok := c.alerts[p.AlertID]
		if ok && !a.IsActive() {
			// A resolved alert is never reopened; the event is a late copy.
			return false
		}
		c.putProduct(p.Product)
		c.alerts[p.AlertID] = &domain.LowStockAlert{
			ID:             p.AlertID,
			ProductID:      p.Product.ID,
			StockAtTrigger: p.Product.Stock,
			Threshold:      p.Product.LowStockThreshold,
			Status:         domain.AlertStatusActive,
			CreatedAt:      alertCreatedAt(a, ev.PublishedAt),
		}
		return true
	case *domain.RestockPayload:
		c.putProduct(p.Product)
		a, ok := c.alerts[p.AlertID]
		if !ok {
			a = &domain.LowStockAlert{
				ID:        p.AlertID,
				ProductID: p.Product.ID,
				Threshold: p.Product.LowStockThreshold,
				CreatedAt: ev.PublishedAt,
			}
			c.alerts[p.AlertID] = a
		}
		closeAlert(a, false, ev.PublishedAt)
		return true
	case *domain.LowStockAcknowledgedPayload:
		if pr, ok := c.products[p.ProductID]; ok {
			pr.AlertStatus = domain.AlertStatusResolved
		}
		a, ok := c.alerts[p.AlertID]
		if !ok {
			a = &domain.LowStockAlert{ID: p.AlertID, ProductID: p.ProductID, CreatedAt: ev.PublishedAt}
			c.alerts[p.AlertID] = a
		}
		closeAlert(a, true, ev.PublishedAt)
		return true

	case *domain.NewReturnPayload:
		r := p.Return
		c.returns[r.ID] = &r
		return true
	case *domain.ReturnStatusUpdatePayload:
		if r, ok := c.returns[p.ID]; ok {
			r.Status = p.Status
			return true
		}

	case *domain.NewSellerPayload:
		s := p.Seller
		c.sellers[s.ID] = &s
		return true
	case *domain.SellerStatusUpdatePayload:
		if s, ok := c.sellers[p.ID]; ok {
			s.Status = p.Status
			return true
		}

	case *domain.DeletedPayload:
		return c.removeEverywhere(p.ID)
	}
	return false
}

func (c *Cache) upsertNotification(n domain.Notification) bool {
	for i, existing := range c.notifications {
		if existing.ID == n.ID {
			clone := n
			c.notifications[i] = &clone
			return true
		}
	}
	clone := n
	c.notifications = append([]*domain.Notification{&clone}, c.notifications...)
	return true
}

func (c *Cache) removeNotification(id string) bool {
	for i, n := range c.notifications {
		if n.ID == id {
			c.notifications = append(c.notifications[:i], c.notifications[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Cache) answer(questionID, answerID string) *domain.Answer {
	q, ok := c.questions[questionID]
	if !ok {
		return nil
	}
	return q.Answers[answerID]
}

// recordVote reports whether eventID is a new vote on answerID.
func (c *Cache) recordVote(answerID, eventID string) bool {
	if eventID == "" {
		return false
	}
	applied, ok := c.votes[answerID]
	if !ok {
		applied = make(map[string]struct{})
		c.votes[answerID] = applied
	}
	if _, dup := applied[eventID]; dup {
		return false
	}
	applied[eventID] = struct{}{}
	return true
}

func (c *Cache) putProduct(p domain.Product) {
	clone := p
	c.products[p.ID] = &clone
}

func alertCreatedAt(existing *domain.LowStockAlert, fallback time.Time) time.Time {
	if existing != nil && !existing.CreatedAt.IsZero() {
		return existing.CreatedAt
	}
	return fallback
}

// closeAlert marks a cached alert resolved. The first resolution time wins
// so a redelivered event does not move it.
func closeAlert(a *domain.LowStockAlert, acknowledged bool, at time.Time) {
	a.Status = domain.AlertStatusResolved
	if acknowledged {
		a.Acknowledged = true
	}
	if a.ResolvedAt == nil {
		t := at
		a.ResolvedAt = &t
	}
}

// removeEverywhere drops id from every id-keyed collection.
func (c *Cache) removeEverywhere(id string) bool {
	removed := c.removeNotification(id)
	removed = deleteKey(c.orders, id) || removed
	removed = deleteKey(c.products, id) || removed
	removed = deleteKey(c.alerts, id) || removed
	if q, ok := c.questions[id]; ok {
		for aid := range q.Answers {
			delete(c.votes, aid)
		}
	}
	removed = deleteKey(c.questions, id) || removed
	removed = deleteKey(c.flags, id) || removed
	removed = deleteKey(c.returns, id) || removed
	removed = deleteKey(c.sellers, id) || removed
	for _, q := range c.questions {
		if deleteKey(q.Answers, id) {
			delete(c.votes, id)
			removed = true
		}
	}
	for i, e := range c.activity {
		if e.ID == id {
			c.activity = append(c.activity[:i], c.activity[i+1:]...)
			removed = true
			break
		}
	}
	return removed
}

func deleteKey[T any](m map[string]*T, id string) bool {
	if _, ok := m[id]; !ok {
		return false
	}
	delete(m, id)
	return true
}
