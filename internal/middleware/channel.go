package middleware

import (
	"github.com/gin-gonic/gin"
	ua "github.com/mssola/user_agent"

	"github.com/swifttransit/booking-backend/internal/models"
)

const channelContextKey = "booking_channel"

// Channel infers the booking channel from the request. An explicit
// X-Booking-Channel header wins; otherwise the User-Agent decides between
// mobile and web. The inferred channel only applies when the request body
// does not name one.
func Channel() gin.HandlerFunc {
	return func(c *gin.Context) {
		channel := parseChannel(c.GetHeader("X-Booking-Channel"))
		if channel == "" {
			parser := ua.New(c.GetHeader("User-Agent"))
			if parser.Mobile() {
				channel = models.ChannelMobile
			} else {
				channel = models.ChannelWeb
			}
		}
		c.Set(channelContextKey, channel)
		c.Next()
	}
}

func parseChannel(value string) models.BookingChannel {
	switch models.BookingChannel(value) {
	case models.ChannelWeb, models.ChannelMobile, models.ChannelPOS, models.ChannelUSSD, models.ChannelAPI:
		return models.BookingChannel(value)
	}
	return ""
}

// GetChannel returns the channel set by the Channel middleware, defaulting
// to api when the middleware did not run.
func GetChannel(c *gin.Context) models.BookingChannel {
	if v, exists := c.Get(channelContextKey); exists {
		if channel, ok := v.(models.BookingChannel); ok {
			return channel
		}
	}
	return models.ChannelAPI
}
