// Package worker consumes file-cleanup tasks and removes stored images nobody references
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/UnendingLoop/ImageAble/internal/model"
	kafkago "github.com/segmentio/kafka-go"
)

// RecordChecker - по пути файла проверяет, ссылается ли на него какая-то запись
type RecordChecker interface {
	ExistsByPath(ctx context.Context, path string) (bool, error)
}

type FileRemover interface {
	Delete(ctx context.Context, key string) error
}

// Committer - подтверждение сообщения в очереди, реализуется wbf kafka.Consumer
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

type Worker struct {
	storage  FileRemover
	records  RecordChecker
	queue    <-chan kafkago.Message
	consumer Committer
}

func NewWorkerInstance(strg FileRemover, rec RecordChecker, q <-chan kafkago.Message, cons Committer) *Worker {
	return &Worker{storage: strg, records: rec, queue: q, consumer: cons}
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				log.Println("Queue channel closed, stopping worker...")
				return
			}
			// при ошибке не коммитим, но следующий коммит сдвинет offset дальше:
			// неудаленный файл без записи потом подберет sweep в api
			if err := w.handle(ctx, msg); err != nil {
				log.Printf("Cleanup task %q failed: %v", string(msg.Key), err)
				continue
			}
			if err := w.consumer.Commit(ctx, msg); err != nil {
				log.Printf("Failed to commit queue-message: %v", err)
			}
		}
	}
}

// handle удаляет файл задачи. Битые сообщения и уже удаленные файлы считаются обработанными
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) error {
	var task model.CleanupTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		log.Printf("Dropping malformed cleanup task %q: %v", string(msg.Key), err)
		return nil
	}
	if task.ImagePath == "" {
		log.Printf("Dropping cleanup task %q without image path", string(msg.Key))
		return nil
	}

	// путь мог снова попасть в базу (например, sweep и повторное сохранение) - такой файл не трогаем
	exists, err := w.records.ExistsByPath(ctx, task.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to check references to %q: %w", task.ImagePath, err)
	}
	if exists {
		log.Printf("File %q is referenced by a record, skipping cleanup (%s)", task.ImagePath, task.Reason)
		return nil
	}

	if err := w.storage.Delete(ctx, task.ImagePath); err != nil && !errors.Is(err, model.ErrImageNotFound) {
		return fmt.Errorf("failed to delete %q from storage: %w", task.ImagePath, err)
	}

	log.Printf("File %q removed from storage (%s)", task.ImagePath, task.Reason)
	return nil
}
