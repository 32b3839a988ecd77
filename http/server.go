package http

import (
	"log"
	"net/http"
	"time"

	raven "github.com/getsentry/raven-go"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sentry"
	"github.com/gin-gonic/gin"

	certifier "github.com/kigawas/certifier-website"
	"github.com/kigawas/certifier-website/common"
)

type HTTPServer struct {
	app     certifier.Certifier
	auditor certifier.RefundAuditor
	host    string
	r       *gin.Engine
}

// failure maps the error taxonomy onto the response envelope. Every rejected
// request carries a stable code the frontend can switch on.
func failure(c *gin.Context, err error) {
	c.JSON(
		http.StatusOK,
		gin.H{
			"success": false,
			"code":    common.CodeOf(err),
			"reason":  err.Error(),
		},
	)
}

func (self *HTTPServer) GetStatus(c *gin.Context) {
	address := c.Param("address")
	log.Printf("Getting certification status for %s", address)
	resp, err := self.app.GetStatus(c.Request.Context(), address)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(
		http.StatusOK,
		gin.H{
			"success":   true,
			"certified": resp.Certified,
			"status":    resp.Status,
			"result":    resp.Result,
			"reason":    resp.Reason,
			"error":     resp.Error,
		},
	)
}

type applicantForm struct {
	Address   string `json:"address" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

func (self *HTTPServer) CreateApplicant(c *gin.Context) {
	var form applicantForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(
			http.StatusOK,
			gin.H{"success": false, "reason": "Malformed request package"},
		)
		return
	}
	sdkToken, err := self.app.CreateApplicant(c.Request.Context(), common.ApplicantRequest{
		Address:   form.Address,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Signature: form.Signature,
		Message:   form.Message,
	})
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(
		http.StatusOK,
		gin.H{
			"success":  true,
			"sdkToken": sdkToken,
		},
	)
}

type checkForm struct {
	Address string `json:"address" binding:"required"`
}

func (self *HTTPServer) CreateCheck(c *gin.Context) {
	var form checkForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(
			http.StatusOK,
			gin.H{"success": false, "reason": "Malformed request package"},
		)
		return
	}
	if err := self.app.CreateCheck(c.Request.Context(), form.Address); err != nil {
		failure(c, err)
		return
	}
	c.JSON(
		http.StatusOK,
		gin.H{
			"success": true,
			"result":  "ok",
		},
	)
}

type webhookForm struct {
	Payload struct {
		Action string `json:"action"`
		Object struct {
			Href string `json:"href"`
		} `json:"object"`
	} `json:"payload"`
}

func (self *HTTPServer) Webhook(c *gin.Context) {
	var form webhookForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(
			http.StatusOK,
			gin.H{"success": false, "reason": "Malformed request package"},
		)
		return
	}
	err := self.app.HandleWebhook(c.Request.Context(), form.Payload.Action, form.Payload.Object.Href)
	if err != nil {
		failure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type refundActivityView struct {
	Who    string `json:"who"`
	Origin string `json:"origin"`
	TxHash string `json:"tx"`
	Time   string `json:"time"`
}

func (self *HTTPServer) GetRefundActivities(c *gin.Context) {
	activities, err := self.auditor.GetActivities()
	if err != nil {
		failure(c, err)
		return
	}
	views := make([]refundActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, refundActivityView{
			Who:    activity.Who,
			Origin: activity.Origin,
			TxHash: activity.TxHash,
			Time:   common.TimepointToTime(activity.Timepoint).UTC().Format(time.RFC3339),
		})
	}
	c.JSON(
		http.StatusOK,
		gin.H{
			"success": true,
			"data":    views,
		},
	)
}

func (self *HTTPServer) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (self *HTTPServer) register() {
	self.r.GET("/ping", self.Ping)
	self.r.GET("/certifier/status/:address", self.GetStatus)
	self.r.POST("/certifier/applicant", self.CreateApplicant)
	self.r.POST("/certifier/check", self.CreateCheck)
	self.r.POST("/certifier/webhook", self.Webhook)
	self.r.GET("/certifier/refunds", self.GetRefundActivities)
}

func (self *HTTPServer) Run() {
	self.register()
	if err := self.r.Run(self.host); err != nil {
		log.Panic(err)
	}
}

func NewHTTPServer(
	app certifier.Certifier,
	auditor certifier.RefundAuditor,
	host string,
	sentryDSN string,
	env string) *HTTPServer {

	r := gin.Default()
	if sentryDSN != "" {
		sentryCli, err := raven.NewWithTags(
			sentryDSN,
			map[string]string{
				"env": env,
			},
		)
		if err != nil {
			panic(err)
		}
		r.Use(sentry.Recovery(
			sentryCli,
			false,
		))
	}
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.MaxAge = 5 * time.Minute
	r.Use(cors.New(corsConfig))

	return &HTTPServer{
		app, auditor, host, r,
	}
}
