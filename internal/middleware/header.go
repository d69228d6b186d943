package middleware

import (
	"coinpilot/internal/consts"
	"coinpilot/pkg/response"
	"coinpilot/utils/uuid"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru"
)

// NoCache 控制客户端不要使用缓存
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, max-age=0, must-revalidate")
		c.Header("Expires", "Thu, 01 Jan 1970 00:00:00 GMT")
		c.Header("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		c.Next()
	}
}

// Options
func Options() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.ToUpper(c.Request.Method) != "OPTIONS" {
			c.Next()
		} else {
			c.Header("Access-Control-Allow-Origin", "*")
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
			c.Header("Access-Control-Allow-Headers", "authorization, origin, content-type, accept")
			c.Header("Allow", "HEAD,GET,POST,PUT,PATCH,DELETE,OPTIONS")
			c.Header("Content-State", "application/json")
			c.AbortWithStatus(http.StatusOK)
		}
	}
}

// Secure 添加安全控制和资源访问
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-State-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000")
		}
		c.Next()
	}
}

// RequestId 用来设置和透传requestId
func RequestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := uuid.GenUUID16()
		c.Header("X-Request-Id", requestId)

		// 设置requestId到context中，便于后面调用链的透传
		c.Set(consts.RequestId, requestId)
		c.Next()
	}
}

func ApiBaseHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientId := c.Request.Header.Get(consts.ClientId)
		c.Set(consts.ClientId, clientId)

		clientVersion := c.Request.Header.Get(consts.ClientVersion)
		c.Set(consts.ClientVersion, clientVersion)

		// 设置设备id
		deviceId := c.Request.Header.Get(consts.DeviceId)
		c.Set(consts.DeviceId, deviceId)

		c.Next()
	}
}

// 限制缓存的最大大小为 500，且是并发安全的 LRU 缓存
var reqCache, _ = lru.New(500)
var duplicateThreshold = 1 * time.Second

// AntiDuplicateMiddleware 防止单个客户端 IP 在 1 秒内重复发送请求，
// 只应用于常规 HTTP API 路由，不要挂在websocket等实时性高的连接上
func AntiDuplicateMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 使用IP + 接口路径 作为key 防抖动
		key := c.ClientIP() + c.Request.URL.Path
		if value, ok := reqCache.Get(key); ok {
			lastRequestTime := value.(time.Time)
			if time.Since(lastRequestTime) < duplicateThreshold {
				response.TooManyRequests(c)
				c.Abort()
				return
			}
		}

		// Hit 或 Miss 都会更新时间戳，LRU自动处理淘汰
		reqCache.Add(key, time.Now())
		c.Next()
	}
}

// RequestValidationMiddleware 校验客户端带的时间戳签名，老版本客户端放行
func RequestValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientVersion := c.GetString(consts.ClientVersion)
		if clientVersion < "1.0.3" {
			c.Next()
			return
		}
		timestamp := c.GetHeader(consts.Timestamp)
		signature := c.GetHeader(consts.Signature)

		utcTimestamp, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			response.BadRequests(c)
			c.Abort()
			return
		}

		currentUTCTimestamp := time.Now().Unix()

		// 时间戳过期窗口 1分钟
		timeThreshold := int64(1 * time.Minute / time.Second)
		if (currentUTCTimestamp - utcTimestamp) > timeThreshold {
			response.BadRequests(c)
			c.Abort()
			return
		}

		validSignature := computeHMAC(timestamp, []byte(consts.RequestSecretKey))
		if signature != validSignature {
			response.BadRequests(c)
			c.Abort()
			return
		}

		c.Next()
	}
}

func computeHMAC(data string, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
