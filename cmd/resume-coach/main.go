package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-coach-go/internal/agent"
	"resume-coach-go/internal/analyzer"
	"resume-coach-go/internal/api/handler"
	"resume-coach-go/internal/api/router"
	"resume-coach-go/internal/artifact"
	"resume-coach-go/internal/auth"
	"resume-coach-go/internal/config"
	"resume-coach-go/internal/delivery"
	"resume-coach-go/internal/logger"
	"resume-coach-go/internal/mailer"
	"resume-coach-go/internal/parser"
	"resume-coach-go/internal/payment"
	"resume-coach-go/internal/report"
	"resume-coach-go/internal/storage"
	"resume-coach-go/internal/tracing"
)

// @title           Resume Coach API
// @version         1.0
// @description     简历上传、分析与报告投递服务
// @BasePath        /api/v1
func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	initLogger(cfg)
	logger.Info().Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化追踪导出，Endpoint未配置时为空操作
	shutdownTracing, err := tracing.InitTracerProvider(ctx, &cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error().Err(err).Msg("关闭追踪导出失败")
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	logger.Info().Msg("存储服务初始化成功")

	if storageManager.MySQL == nil {
		logger.Fatal().Msg("MySQL未配置，无法启动")
	}

	// 模型客户端可选：未配置API密钥时所有分析走本地降级路径
	var chatModel model.BaseChatModel
	if cfg.OpenAI.APIKey != "" {
		openAIModel, err := agent.NewOpenAIChatModel(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.APIURL,
			agent.WithMaxTokens(cfg.OpenAI.MaxTokens),
			agent.WithTemperature(cfg.OpenAI.Temperature),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化模型客户端失败，分析将使用本地降级路径")
		} else {
			chatModel = openAIModel
			logger.Info().Str("model", cfg.OpenAI.Model).Msg("模型客户端初始化成功")
		}
	} else {
		logger.Warn().Msg("未配置模型API密钥，分析将使用本地降级路径")
	}

	textExtractor, err := parser.NewEinoTextExtractor(ctx,
		parser.WithTextTimeout(cfg.OpenAI.RequestTimeout()))
	if err != nil {
		logger.Fatal().Err(err).Msg("创建PDF文本提取器失败")
	}
	imageExtractor := parser.NewPdfcpuImageExtractor()

	artifacts, err := artifact.NewCache(cfg.Upload.ProfilePictureDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("创建派生文件缓存失败")
	}

	engine := analyzer.NewEngine(chatModel, analyzer.WithTimeout(cfg.OpenAI.RequestTimeout()))
	renderer := report.NewRenderer(cfg.Report)

	tokens, err := auth.NewTokenService(&cfg.JWT)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化令牌服务失败")
	}

	// 报告投递worker：依赖RabbitMQ与SMTP，缺一不可
	startDeliveryWorker(ctx, cfg, storageManager, textExtractor, engine, renderer)

	var paymentHandler *handler.PaymentHandler
	if cfg.Stripe.SecretKey != "" {
		stripeService, err := payment.NewStripeService(&cfg.Stripe)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化Stripe失败，支付端点不可用")
		} else {
			paymentHandler = handler.NewPaymentHandler(stripeService, storageManager.MySQL)
		}
	}

	var cache handler.AnalysisCache
	if storageManager.Redis != nil {
		cache = storageManager.Redis
	}
	var archive handler.Archiver
	if storageManager.MinIO != nil {
		archive = storageManager.MinIO
	}
	var jobs handler.JobPublisher
	if storageManager.RabbitMQ != nil {
		jobs = storageManager.RabbitMQ
	}

	resumeHandler := handler.NewResumeHandler(cfg, storageManager.MySQL, cache, archive, jobs,
		storageManager.Local, textExtractor, imageExtractor, artifacts, engine, tokens)
	questionnaireHandler := handler.NewQuestionnaireHandler(storageManager.MySQL)
	strategyHandler := handler.NewStrategyHandler(storageManager.MySQL, chatModel, engine, textExtractor, cache)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Upload.MaxSizeMB*1024*1024),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, &router.Handlers{
		Resume:        resumeHandler,
		Questionnaire: questionnaireHandler,
		Payment:       paymentHandler,
		Strategy:      strategyHandler,
		Tokens:        tokens,
	})
	logger.Info().Str("address", cfg.Server.Address).Msg("HTTP路由注册成功，服务器启动中")

	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// initLogger 初始化日志系统并把hertz内部日志接到zerolog
func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	logger.Logger = logger.Logger.With().
		Str("app", "resume-coach-go").
		Logger()

	glog.SetLogger(hertzadapter.From(logger.Logger))
}

// startDeliveryWorker 启动报告投递worker。
// RabbitMQ或SMTP未配置时跳过，send-pdf端点相应不可用
func startDeliveryWorker(ctx context.Context, cfg *config.Config, storageManager *storage.Storage,
	extractor delivery.TextExtractor, engine delivery.Analyzer, renderer delivery.Renderer) {
	if storageManager.RabbitMQ == nil {
		logger.Warn().Msg("RabbitMQ未配置，报告投递worker不启动")
		return
	}
	if cfg.SMTP.Username == "" {
		logger.Warn().Msg("SMTP未配置，报告投递worker不启动")
		return
	}

	sender, err := mailer.NewMailer(&cfg.SMTP)
	if err != nil {
		logger.Warn().Err(err).Msg("初始化邮件发送器失败，报告投递worker不启动")
		return
	}

	var cache delivery.AnalysisCache
	if storageManager.Redis != nil {
		cache = storageManager.Redis
	}

	worker := delivery.NewWorker(storageManager.RabbitMQ, storageManager.MySQL, cache,
		extractor, engine, renderer, sender)

	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("报告投递worker退出")
		}
	}()
	logger.Info().Msg("报告投递worker已启动")
}
