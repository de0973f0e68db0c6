package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Restocker пополняет складской остаток. Реализуется inventory.Manager.
type Restocker interface {
	Restock(articleID string, units int) error
}

// NewRestockHandler возвращает handler команд из TopicRestock.
// Неизвестный артикул и некорректное количество считаются постоянными ошибками.
func NewRestockHandler(restocker Restocker, logger *log.Entry) MessageHandler {
	if logger == nil {
		logger = log.WithField("component", "restock-handler")
	}
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		cmd, err := ParseRestockCommand(message)
		if err != nil {
			return err
		}
		if err := restocker.Restock(cmd.ArticleID, cmd.Units); err != nil {
			if domain.IsUnknownEntity(err) || domain.IsInvalidArgument(err) {
				return fmt.Errorf("%w: %w", ErrPermanent, err)
			}
			return err
		}
		logger.WithFields(log.Fields{
			"article_id": cmd.ArticleID,
			"units":      cmd.Units,
		}).Info("restock command applied")
		return nil
	}
}
