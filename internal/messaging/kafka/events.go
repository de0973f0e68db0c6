// Package kafka публикует события заказов и принимает команды пополнения склада.
package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "retail.order.events"
	TopicDeadLetterQueue = "retail.dlq"
	TopicRestock         = "retail.inventory.restock"
)

// Kafka headers
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// RestockCommand: команда пополнения остатка артикула.
type RestockCommand struct {
	ArticleID string `json:"article_id"`
	Units     int    `json:"units"`
}

// ParseRestockCommand разбирает и проверяет команду пополнения.
// Ошибки разбора постоянные: повторная обработка их не исправит.
func ParseRestockCommand(message *sarama.ConsumerMessage) (RestockCommand, error) {
	var cmd RestockCommand
	if err := json.Unmarshal(message.Value, &cmd); err != nil {
		return RestockCommand{}, fmt.Errorf("%w: unmarshal restock command: %v", ErrPermanent, err)
	}
	if cmd.ArticleID == "" {
		return RestockCommand{}, fmt.Errorf("%w: %w", ErrPermanent, domain.ErrInvalidArticle)
	}
	if cmd.Units <= 0 {
		return RestockCommand{}, fmt.Errorf("%w: %w", ErrPermanent, domain.ErrUnitsInvalid)
	}
	return cmd, nil
}
