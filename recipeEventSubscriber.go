package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/workflow"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/idtoken"
)

// PubSubMessage is the push subscription envelope.
type PubSubMessage struct {
	Message struct {
		Data []byte `json:"data,omitempty"`
		ID   string `json:"id"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

var errPushUnauthorized = errors.New("push delivery is not authenticated")

// pushVerifier validates the bearer token of a push delivery.
type pushVerifier func(ctx context.Context, token string) error

// newPushVerifier checks push tokens against Google's signing keys.
//
// Set via env:
// - PUBSUB_PUSH_AUDIENCE="https://api.example.com/pubsub"
// - PUBSUB_PUSH_SERVICE_ACCOUNT="pusher@project.iam.gserviceaccount.com" (optional)
//
// It returns nil when no audience is configured.
func newPushVerifier() pushVerifier {
	audience := strings.TrimSpace(os.Getenv("PUBSUB_PUSH_AUDIENCE"))
	if audience == "" {
		return nil
	}
	serviceAccount := strings.TrimSpace(os.Getenv("PUBSUB_PUSH_SERVICE_ACCOUNT"))
	return func(ctx context.Context, token string) error {
		payload, err := idtoken.Validate(ctx, token, audience)
		if err != nil {
			return err
		}
		if serviceAccount == "" {
			return nil
		}
		email, _ := payload.Claims["email"].(string)
		verified, _ := payload.Claims["email_verified"].(bool)
		if !verified || !strings.EqualFold(email, serviceAccount) {
			return fmt.Errorf("unexpected push identity %q", email)
		}
		return nil
	}
}

// authorizePush rejects deliveries without a valid token. In production
// a missing verifier rejects everything.
func (a *api) authorizePush(c *gin.Context) error {
	if a.verifyPush == nil {
		if isProduction() {
			return fmt.Errorf("%w: PUBSUB_PUSH_AUDIENCE is not set", errPushUnauthorized)
		}
		return nil
	}
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return errPushUnauthorized
	}
	if err := a.verifyPush(c.Request.Context(), strings.TrimPrefix(header, "Bearer ")); err != nil {
		return fmt.Errorf("%w: %v", errPushUnauthorized, err)
	}
	return nil
}

var (
	userMutexMap = make(map[string]*sync.Mutex)
	globalMutex  = &sync.Mutex{}
)

// userMutex serializes events of one user inside this process.
func userMutex(userId string) *sync.Mutex {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	mutex, exists := userMutexMap[userId]
	if !exists {
		mutex = &sync.Mutex{}
		userMutexMap[userId] = mutex
	}
	return mutex
}

// handleRecipeEvent decodes and processes one delivery. A nil return
// means ack; malformed payloads are acked so they do not loop.
func handleRecipeEvent(ctx context.Context, logger *logrus.Logger, data []byte, deliveryId string) error {
	var m config.RecipeEventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		config.LogError(logger, "RecipeEventSubscriber", "handleRecipeEvent", "Unmarshal pubsub message", string(data), err)
		return nil
	}
	if m.CorrelationId == "" {
		m.CorrelationId = deliveryId
	}

	mutex := userMutex(m.UserId)
	mutex.Lock()
	defer mutex.Unlock()

	err := workflow.ProcessRecipeEvent(ctx, logger, m)
	if errors.Is(err, workflow.ErrInvalidEvent) {
		config.LogError(logger, "RecipeEventSubscriber", "handleRecipeEvent", "invalid message", m, err)
		return nil
	}
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":          "RecipeEventSubscriber",
			"user_id":        m.UserId,
			"reference_id":   m.ReferenceId,
			"record_id":      m.ID,
			"message_id":     deliveryId,
			"correlation_id": m.CorrelationId,
		}).Error("pubsub processing failed: " + err.Error())
	}
	return err
}

// recipeEventPushHandler serves the push subscription. Non-2xx asks
// Pub/Sub to redeliver.
func (a *api) recipeEventPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.authorizePush(c); err != nil {
			config.LogError(a.logger, "RecipeEventSubscriber", "recipeEventPushHandler", "authorizePush", nil, err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "kind": "authentication"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			config.LogError(a.logger, "RecipeEventSubscriber", "recipeEventPushHandler", "io.ReadAll", nil, err)
			c.Status(http.StatusNoContent)
			return
		}

		// byte slice unmarshalling handles base64 decoding.
		var msg PubSubMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			config.LogError(a.logger, "RecipeEventSubscriber", "recipeEventPushHandler", "Unmarshal body", string(body), err)
			c.Status(http.StatusNoContent)
			return
		}

		if err := handleRecipeEvent(c.Request.Context(), a.logger, msg.Message.Data, msg.Message.ID); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RunRecipeEventSubscriber starts a pull subscriber on PUBSUB_SUBSCRIPTION.
// It is a no-op when no subscription is configured.
func RunRecipeEventSubscriber(ctx context.Context, logger *logrus.Logger) error {
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		return nil
	}
	client, err := config.GetPubSubClient(ctx)
	if err != nil {
		return err
	}
	sub := client.Subscription(subscription)
	sub.ReceiveSettings.MaxOutstandingMessages = 10

	callback := func(ctx context.Context, msg *pubsub.Message) {
		if err := handleRecipeEvent(ctx, logger, msg.Data, msg.ID); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	}

	go func() {
		if err := sub.Receive(ctx, callback); err != nil {
			config.LogError(logger, "RecipeEventSubscriber", "RunRecipeEventSubscriber", "Failed to receive messages", nil, err)
		}
	}()
	return nil
}
