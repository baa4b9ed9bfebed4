// Package main (in api-subfolder) provides launch of the whole application except worker
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnendingLoop/ImageAble/internal/auth"
	"github.com/UnendingLoop/ImageAble/internal/backend"
	"github.com/UnendingLoop/ImageAble/internal/kafka"
	"github.com/UnendingLoop/ImageAble/internal/mwlogger"
	"github.com/UnendingLoop/ImageAble/internal/repository"
	"github.com/UnendingLoop/ImageAble/internal/service"
	"github.com/UnendingLoop/ImageAble/internal/storage"
	"github.com/UnendingLoop/ImageAble/internal/transport"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/ginext"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	// инициализировать конфиг/ считать энвы
	appConfig := config.New()
	appConfig.EnableEnv("")
	if err := appConfig.LoadEnvFiles("./.env"); err != nil {
		log.Fatalf("Failed to load envs: %s\nExiting app...", err)
	}

	// стартуем логгер
	zlog.InitConsole()
	if err := zlog.SetLevel(stringOr(appConfig, "LOG_LEVEL", "info")); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	secret := appConfig.GetString("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set. Exiting app...")
	}

	// готовим заранее слушатель прерываний - контекст для всего приложения
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// подключитсья к базе и накатить миграцию
	dbConn := repository.ConnectWithRetries(appConfig, 5, 10*time.Second)
	repository.MigrateWithRetries(dbConn.Master, "./migrations", 10, 15*time.Second)
	repo := repository.NewPostgresImageRepo(dbConn)

	// подключиться к хранилищу
	strg := storage.NewImgStorage(appConfig, 10*time.Second)

	// ждем пока кафка раздуплится и готовим топик под очистку файлов
	broker := appConfig.GetString("KAFKA_BROKER")
	if err := kafka.WaitKafkaReady(ctx, broker, 10*time.Second); err != nil {
		log.Fatalf("Kafka is unreachable: %v", err)
	}
	topic := appConfig.GetString("KAFKA_CLEANUP_TOPIC")
	if err := kafka.InitKafkaTopics(ctx, broker, 10*time.Second, topic); err != nil {
		log.Fatalf("Failed to init Kafka topics: %v", err)
	}
	pub := wbfkafka.NewProducer([]string{broker}, topic)

	// клиенты инференса
	backends := backend.NewFactory(backend.Options{
		CaptionEndpoint: appConfig.GetString("CAPTION_ENDPOINT"),
		ChatModel:       appConfig.GetString("OPENAI_MODEL"),
		ChatBaseURL:     appConfig.GetString("OPENAI_BASE_URL"),
		Timeout:         durationOr(appConfig, "BACKEND_TIMEOUT", backend.DefaultTimeout),
	})
	var evaluator service.Evaluator // nil-интерфейс, если оценщик не настроен
	if ep := appConfig.GetString("EVAL_ENDPOINT"); ep != "" {
		evaluator = backend.NewEvaluatorClient(ep, backends.HTTPClient())
	}

	// создаем экземпляр сервиса
	var svc ImageAPIService = service.NewImageService(repo, pub, strg, backends, evaluator, service.Options{
		PageSize:  intOr(appConfig, "GALLERY_PAGE_SIZE", service.DefaultPageSize),
		OrphanAge: durationOr(appConfig, "ORPHAN_AGE", service.DefaultOrphanAge),
	})
	// cоздаем экземпляр хендлера HTTP
	handlers := transport.NewImageHandler(svc)
	// сетапим сервер
	engine := ginext.New(appConfig.GetString("GIN_MODE"))

	engine.GET("/ping", handlers.SimplePinger)

	engine.POST("/Image/GetMultipleImages", handlers.GetMultipleImages)                 // описание дефолтным сервисом
	engine.POST("/Image/DescFromChatGPT", handlers.DescFromChatGPT)                     // описание с ключом пользователя
	engine.POST("/Image/Custom", handlers.Custom)                                       // описание пользовательским эндпоинтом
	engine.POST("/Image/GetEval", handlers.GetEval)                                     // оценка описаний
	engine.POST("/Image/SaveImage", handlers.SaveImage)                                 // сохранение в галерею
	engine.POST("/Image/downloadImageWithMetadata", handlers.DownloadImageWithMetadata) // вшить метаданные и отдать файл

	engine.GET("/Gallery", handlers.Gallery) // список с пагинацией, сортировкой и поиском
	engine.GET("/Gallery/DownloadImage/:id", handlers.DownloadImage)
	engine.POST("/Gallery/UpdateImageDescription", handlers.UpdateImageDescription)
	engine.DELETE("/Gallery/:id", handlers.Delete)

	srv := &http.Server{
		Addr:              ":" + appConfig.GetString("APP_PORT"),
		Handler:           mwlogger.NewMWLogger(auth.New(secret).Middleware(engine)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Server launch
	go func() {
		log.Printf("Server running on http://localhost%s\n", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				log.Println("Server gracefully stopping...")
			default:
				log.Printf("Server stopped: %v", err)
				stop()
			}
		}
	}()

	// фоновый поиск файлов без записей в БД
	go sweepLoop(ctx, svc, durationOr(appConfig, "SWEEP_INTERVAL", time.Minute))

	// ждем отмены контекста для запуска грейсфул закрытия соединений
	<-ctx.Done()

	shutdown(srv, pub, dbConn)
	log.Println("Exiting api...")
}

func sweepLoop(ctx context.Context, svc ImageAPIService, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Sweep loop crashed:", r)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.SweepOrphans(ctx, 20)
		}
	}
}

func shutdown(srv *http.Server, pub *wbfkafka.Producer, dbConn *dbpg.DB) {
	log.Println("Interrupt received!!! Starting shutdown sequence...")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Println("Failed to shutdown HTTP-server correctly:", err)
	}

	// Closing Kafka connection:
	if err := pub.Close(); err != nil {
		log.Println("Failed to close Kafka-writer:", err)
	}
	log.Println("Kafka-producer connection closed.")

	// Closing DB connection
	if err := dbConn.Master.Close(); err != nil {
		log.Println("Failed to close DB-conn correctly:", err)
		return
	}
	log.Println("DBconn closed")
}
