package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yuewan10000-ops/task-platform/config"
	"github.com/yuewan10000-ops/task-platform/controllers"
	"github.com/yuewan10000-ops/task-platform/database"
	"github.com/yuewan10000-ops/task-platform/middleware"
	"github.com/yuewan10000-ops/task-platform/services"
	"github.com/yuewan10000-ops/task-platform/ws"

	_ "github.com/yuewan10000-ops/task-platform/docs" // Swagger docs
)

// @title           Task Platform API
// @version         1.0
// @description     Task platform backend with order settlement, balance reservation and support chat
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@example.com

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// 1. 加载配置
	cfg := config.LoadConfig()
	log.Println("Configuration loaded")

	// 2. 初始化MySQL数据库连接（全局单例）
	if err := database.InitDB(cfg); err != nil {
		log.Fatalf("FATAL: Failed to connect to MySQL: %v", err)
	}
	defer database.CloseDB()

	// 3. 初始化Redis连接
	if err := database.InitRedis(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Fatalf("FATAL: Failed to connect to Redis: %v", err)
	}
	defer database.CloseRedis()

	// 4. 创建JWT中间件实例（全局单例）
	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWTSecret, cfg.JWTExpireDuration)
	log.Println("JWT middleware initialized")

	// 5. 创建限流中间件
	rateLimiter := middleware.NewRateLimiter(database.GetRedis())
	log.Println("Rate limiter initialized")

	// 6. 创建Gin路由
	router := gin.Default()

	// 7. 应用全局中间件
	router.Use(middleware.CORS())
	router.Use(rateLimiter.GlobalLimit()) // 全局限流

	// 8. 创建服务层
	rateService := services.NewCommissionRateService(database.GetDB())
	orderService := services.NewOrderService(database.GetDB(), rateService)
	rechargeService := services.NewRechargeService(database.GetDB())
	injectionService := services.NewInjectionService(database.GetDB(), orderService, rechargeService)
	userService := services.NewUserService(database.GetDB(), orderService, rechargeService, injectionService, cfg.AdminAccount)
	subUserService := services.NewSubUserService(database.GetDB(), userService, cfg.AdminAccount)
	productService := services.NewProductService(database.GetDB())
	captchaService := services.NewCaptchaService(database.GetDB())
	supportService := services.NewSupportService(database.GetDB(), database.GetRedis())

	var emailService *services.EmailService
	var notifier services.WithdrawNotifier
	if cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		emailService = services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
		notifier = emailService
	}
	withdrawService := services.NewWithdrawService(database.GetDB(), notifier)
	log.Println("Services initialized")

	// 9. 创建WebSocket Hub（客服消息实时推送）
	wsHub := ws.NewHub(supportService.Messages)
	go wsHub.Run() // 启动Hub
	pubSubManager := ws.NewPubSubManager(database.GetRedis(), wsHub)
	go pubSubManager.Run() // 启动Redis订阅
	log.Println("WebSocket Hub initialized")

	// 10. 创建控制器
	authController := controllers.NewAuthController(userService, jwtMiddleware, captchaService, cfg.AdminAccount, cfg.AdminPassword)
	userController := controllers.NewUserController(userService, jwtMiddleware)
	orderController := controllers.NewOrderController(orderService, jwtMiddleware)
	rateController := controllers.NewCommissionRateController(rateService, jwtMiddleware)
	rechargeController := controllers.NewRechargeController(rechargeService, jwtMiddleware)
	withdrawController := controllers.NewWithdrawController(withdrawService, jwtMiddleware)
	injectionController := controllers.NewInjectionPlanController(injectionService, jwtMiddleware)
	productController := controllers.NewProductController(productService, jwtMiddleware)
	supportController := controllers.NewSupportController(supportService, wsHub, jwtMiddleware)
	captchaController := controllers.NewCaptchaController(captchaService)
	subUserController := controllers.NewSubUserController(subUserService, jwtMiddleware)
	log.Println("Controllers initialized")

	// 11. 注册路由（认证和验证码接口带限流）
	authController.RegisterRoutes(router, rateLimiter)
	userController.RegisterRoutes(router)
	orderController.RegisterRoutes(router)
	rateController.RegisterRoutes(router)
	rechargeController.RegisterRoutes(router)
	withdrawController.RegisterRoutes(router)
	injectionController.RegisterRoutes(router)
	productController.RegisterRoutes(router)
	supportController.RegisterRoutes(router)
	captchaController.RegisterRoutes(router, rateLimiter)
	subUserController.RegisterRoutes(router)

	// 12. Swagger文档（仅开发环境）
	if os.Getenv("GIN_MODE") != "release" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		log.Println("Swagger documentation available at: http://localhost:8080/swagger/index.html")
	}

	// 13. 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// 14. 启动服务器
	addr := ":" + cfg.ServerPort
	log.Printf("API Server starting on %s", addr)
	log.Printf("WebSocket endpoint: ws://localhost%s/ws/support", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("FATAL: Failed to start API server: %v", err)
	}
}
