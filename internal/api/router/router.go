// Package router 注册HTTP路由并实现JWT鉴权中间件。
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"gorm.io/gorm"

	"resume-coach-go/internal/api/handler"
	"resume-coach-go/internal/auth"
	"resume-coach-go/internal/parser"
	"resume-coach-go/internal/report"
)

const claimsContextKey = "auth_claims"

// Handlers 路由所需的全部处理器
type Handlers struct {
	Resume        *handler.ResumeHandler
	Questionnaire *handler.QuestionnaireHandler
	Payment       *handler.PaymentHandler // 可为nil，未配置Stripe时支付端点不注册
	Strategy      *handler.StrategyHandler
	Tokens        *auth.TokenService
}

// RegisterRoutes 注册API路由
func RegisterRoutes(h *server.Hertz, handlers *Handlers) {
	api := h.Group("/api/v1")

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api.POST("/resumes/upload", func(c context.Context, ctx *app.RequestContext) {
		email := ctx.PostForm("email")

		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
			return
		}

		resp, err := handlers.Resume.HandleUpload(c, email, fileHeader.Filename, data)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusCreated, resp)
	})

	authorized := api.Group("/", authMiddleware(handlers.Tokens))

	authorized.GET("/resumes/:slug", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		resp, err := handlers.Resume.HandleGetResume(c, slug)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	authorized.POST("/resumes/:slug/analyze", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		resp, err := handlers.Resume.HandleAnalyze(c, slug)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	authorized.GET("/resumes/:slug/profile-picture", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		path, err := handlers.Resume.HandleProfilePicture(c, slug)
		if err != nil {
			respondError(ctx, err)
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "读取头像缓存失败"})
			return
		}
		contentType := mime.TypeByExtension(filepath.Ext(path))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ctx.Data(consts.StatusOK, contentType, data)
	})

	authorized.POST("/resumes/:slug/send-pdf", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		email := ctx.PostForm("email")
		if email == "" {
			if claims := requestClaims(ctx); claims != nil {
				email = claims.Email
			}
		}
		if err := handlers.Resume.HandleSendPDF(c, slug, email); err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, utils.H{"status": "queued"})
	})

	authorized.POST("/questionnaires/:slug", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		resp, err := handlers.Questionnaire.HandleSubmit(c, slug, json.RawMessage(ctx.Request.Body()))
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	authorized.GET("/questionnaires/:slug", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		resp, err := handlers.Questionnaire.HandleGet(c, slug)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	authorized.POST("/strategies/:slug", func(c context.Context, ctx *app.RequestContext) {
		slug := ctx.Param("slug")
		if !slugAuthorized(ctx, slug) {
			return
		}
		resp, err := handlers.Strategy.HandleGenerate(c, slug)
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	if handlers.Payment != nil {
		authorized.POST("/payments/create", func(c context.Context, ctx *app.RequestContext) {
			claims := requestClaims(ctx)
			if claims == nil {
				ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "未授权"})
				return
			}
			resp, err := handlers.Payment.HandleCreate(c, claims.Slug)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(consts.StatusCreated, resp)
		})

		authorized.POST("/payments/confirm", func(c context.Context, ctx *app.RequestContext) {
			intentID := ctx.PostForm("payment_intent_id")
			if intentID == "" {
				ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少payment_intent_id"})
				return
			}
			resp, err := handlers.Payment.HandleConfirm(c, intentID)
			if err != nil {
				respondError(ctx, err)
				return
			}
			ctx.JSON(consts.StatusOK, resp)
		})
	}
}

// authMiddleware 基于Bearer令牌的鉴权中间件，
// 校验通过后把令牌声明放入请求上下文
func authMiddleware(tokens *auth.TokenService) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, token string) (bool, error) {
			claims, err := tokens.ParseToken(token)
			if err != nil {
				return false, err
			}
			ctx.Set(claimsContextKey, claims)
			return true, nil
		}),
		keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
			ctx.JSON(consts.StatusUnauthorized, utils.H{"error": "访问令牌无效或缺失"})
			ctx.Abort()
		}),
	)
}

// requestClaims 取出鉴权中间件放入的令牌声明
func requestClaims(ctx *app.RequestContext) *auth.Claims {
	v, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// slugAuthorized 校验令牌授权的简历与路径参数一致，一个令牌只能访问一份简历
func slugAuthorized(ctx *app.RequestContext, slug string) bool {
	claims := requestClaims(ctx)
	if claims == nil || claims.Slug != slug {
		ctx.JSON(consts.StatusForbidden, utils.H{"error": "无权访问该简历"})
		return false
	}
	return true
}

// respondError 按错误分类映射HTTP状态码：
// 无图片与记录不存在为404，文档不可读为400，渲染不可用为500
func respondError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, parser.ErrNoImage):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "简历中没有可用的头像"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		ctx.JSON(consts.StatusNotFound, utils.H{"error": "记录不存在"})
	case errors.Is(err, parser.ErrExtraction):
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "上传的文件无法读取或不是合法PDF"})
	case errors.Is(err, report.ErrRenderUnavailable):
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "报告渲染服务不可用"})
	default:
		ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	}
}
