// Package billing processes billing-provider webhooks. Unlike the platform
// webhooks, Stripe deliveries are verified by the official SDK and drive a
// subscription state machine on the billing profile instead of producing
// sync jobs.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/sellerpulse/backend/internal/domain/billing"
	"github.com/sellerpulse/backend/internal/infrastructure/config"
)

// StripeWebhookService verifies and applies Stripe webhook events
type StripeWebhookService struct {
	config   config.StripeConfig
	profiles billing.Repository
	logger   *zap.Logger
}

// NewStripeWebhookService creates a Stripe webhook service
func NewStripeWebhookService(cfg config.StripeConfig, profiles billing.Repository, logger *zap.Logger) *StripeWebhookService {
	return &StripeWebhookService{
		config:   cfg,
		profiles: profiles,
		logger:   logger.Named("billing.stripe"),
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies the Stripe signature and applies the event. The
// state machine is terminal-free: a cancelled profile re-enters active on
// the next completed checkout.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Warn("Stripe webhook signature rejected", zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	switch event.Type {
	case "checkout.session.completed":
		err = s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	default:
		s.logger.Debug("Unhandled Stripe event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process Stripe event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}
	return result, nil
}

// planForPrice maps a Stripe price id to a subscription tier. An unknown
// price returns the empty plan; callers skip the plan change for it.
func (s *StripeWebhookService) planForPrice(priceID string) billing.Plan {
	switch priceID {
	case s.config.PriceStarter:
		return billing.PlanStarter
	case s.config.PricePro:
		return billing.PlanPro
	default:
		return ""
	}
}

// handleCheckoutCompleted activates the profile for a finished checkout.
// The checkout session carries the user id as the client reference and the
// purchased price id in its metadata.
func (s *StripeWebhookService) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	userID, err := uuid.Parse(session.ClientReferenceID)
	if err != nil {
		s.logger.Warn("Checkout session has no usable client reference, skipping",
			zap.String("session_id", session.ID))
		return nil
	}

	plan := s.planForPrice(session.Metadata["price_id"])
	if plan == "" {
		s.logger.Warn("Checkout session for unrecognized price, skipping",
			zap.String("session_id", session.ID),
			zap.String("price_id", session.Metadata["price_id"]))
		return nil
	}

	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, billing.ErrProfileNotFound) {
			return fmt.Errorf("failed to find billing profile: %w", err)
		}
		profile, err = billing.NewBillingProfile(userID)
		if err != nil {
			return err
		}
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}
	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	if err := profile.Activate(plan, customerID, subscriptionID); err != nil {
		return err
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save billing profile: %w", err)
	}

	s.logger.Info("Checkout completed",
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan)),
		zap.String("subscription_id", subscriptionID))
	return nil
}

// handleSubscriptionUpdated re-derives the plan from the subscription's
// price and maps the upstream status onto active or past_due.
func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	profile, err := s.findBySubscription(ctx, &subscription)
	if err != nil || profile == nil {
		return err
	}

	plan := profile.Plan
	if priceID := subscriptionPriceID(&subscription); priceID != "" {
		if mapped := s.planForPrice(priceID); mapped != "" {
			plan = mapped
		}
	}

	switch subscription.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		customerID := ""
		if subscription.Customer != nil {
			customerID = subscription.Customer.ID
		}
		if err := profile.Activate(plan, customerID, subscription.ID); err != nil {
			return err
		}
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		profile.MarkPastDue()
	case stripe.SubscriptionStatusCanceled:
		// The subscription.deleted event carries the cancellation.
		s.logger.Info("Subscription canceled upstream",
			zap.String("user_id", profile.UserID.String()))
		return nil
	default:
		s.logger.Debug("Unhandled subscription status",
			zap.String("status", string(subscription.Status)))
		return nil
	}

	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save billing profile: %w", err)
	}

	s.logger.Info("Subscription updated",
		zap.String("user_id", profile.UserID.String()),
		zap.String("status", string(profile.Status)),
		zap.String("plan", string(profile.Plan)))
	return nil
}

// handleSubscriptionDeleted reverts the profile to the free tier
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	profile, err := s.profiles.FindByStripeSubscriptionID(ctx, subscription.ID)
	if err != nil {
		if errors.Is(err, billing.ErrProfileNotFound) {
			s.logger.Warn("Profile not found for subscription",
				zap.String("subscription_id", subscription.ID))
			return nil
		}
		return fmt.Errorf("failed to find billing profile: %w", err)
	}

	profile.Cancel()
	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save billing profile: %w", err)
	}

	s.logger.Info("Subscription deleted, profile reverted to free tier",
		zap.String("user_id", profile.UserID.String()),
		zap.String("subscription_id", subscription.ID))
	return nil
}

// handleInvoicePaid resets the usage counters for the new billing period
func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping")
		return nil
	}

	profile, err := s.findByInvoiceCustomer(ctx, &invoice)
	if err != nil || profile == nil {
		return err
	}

	profile.ResetUsage(time.Unix(invoice.PeriodStart, 0), time.Unix(invoice.PeriodEnd, 0))
	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save billing profile: %w", err)
	}

	s.logger.Info("Invoice paid, usage counters reset",
		zap.String("user_id", profile.UserID.String()),
		zap.String("invoice_id", invoice.ID))
	return nil
}

// handleInvoicePaymentFailed flags the profile past_due without revoking
// the plan; the subscription.updated event confirms or resolves it.
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping")
		return nil
	}

	profile, err := s.findByInvoiceCustomer(ctx, &invoice)
	if err != nil || profile == nil {
		return err
	}

	profile.MarkPastDue()
	if err := s.profiles.Save(ctx, profile); err != nil {
		return fmt.Errorf("failed to save billing profile: %w", err)
	}

	s.logger.Warn("Invoice payment failed",
		zap.String("user_id", profile.UserID.String()),
		zap.String("invoice_id", invoice.ID))
	return nil
}

// findBySubscription resolves a profile by subscription id, falling back to
// the customer id. A nil profile with nil error means the event does not
// belong to any known user; Stripe gets an acknowledgment so it stops
// retrying.
func (s *StripeWebhookService) findBySubscription(ctx context.Context, subscription *stripe.Subscription) (*billing.BillingProfile, error) {
	profile, err := s.profiles.FindByStripeSubscriptionID(ctx, subscription.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, billing.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to find billing profile: %w", err)
	}

	if subscription.Customer == nil || subscription.Customer.ID == "" {
		s.logger.Warn("Profile not found for subscription",
			zap.String("subscription_id", subscription.ID))
		return nil, nil
	}
	profile, err = s.profiles.FindByStripeCustomerID(ctx, subscription.Customer.ID)
	if err != nil {
		if errors.Is(err, billing.ErrProfileNotFound) {
			s.logger.Warn("Profile not found for subscription",
				zap.String("subscription_id", subscription.ID),
				zap.String("customer_id", subscription.Customer.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find billing profile: %w", err)
	}
	return profile, nil
}

func (s *StripeWebhookService) findByInvoiceCustomer(ctx context.Context, invoice *stripe.Invoice) (*billing.BillingProfile, error) {
	if invoice.Customer == nil || invoice.Customer.ID == "" {
		s.logger.Warn("Invoice has no customer id, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil, nil
	}
	profile, err := s.profiles.FindByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		if errors.Is(err, billing.ErrProfileNotFound) {
			s.logger.Warn("Profile not found for customer",
				zap.String("customer_id", invoice.Customer.ID))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find billing profile: %w", err)
	}
	return profile, nil
}

// subscriptionPriceID extracts the price id off the first subscription item
func subscriptionPriceID(subscription *stripe.Subscription) string {
	if subscription.Items == nil || len(subscription.Items.Data) == 0 {
		return ""
	}
	item := subscription.Items.Data[0]
	if item == nil || item.Price == nil {
		return ""
	}
	return item.Price.ID
}
