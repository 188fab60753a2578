package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tably-system/internal/auth"
)

// RestaurantIDKey is where AdminAuth stores the authenticated restaurant id.
const RestaurantIDKey = "restaurant_id"

// AdminAuth authenticates the staff surface. It accepts either the raw
// X-Admin-Token header or a Bearer session JWT issued by the auth endpoint.
func AdminAuth(db *gorm.DB, jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := c.GetHeader("X-Admin-Token"); token != "" {
			restaurant, err := auth.ResolveAdminToken(db, token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"message": "Invalid admin token",
				})
				return
			}
			c.Set(RestaurantIDKey, restaurant.ID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			claims, err := auth.ParseSessionToken(jwtSecret, strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"message": "Invalid or expired session token",
				})
				return
			}
			c.Set(RestaurantIDKey, claims.RestaurantID)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Admin credentials required",
		})
	}
}

// RestaurantID extracts the authenticated restaurant id set by AdminAuth.
func RestaurantID(c *gin.Context) int64 {
	id, _ := c.Get(RestaurantIDKey)
	restaurantID, _ := id.(int64)
	return restaurantID
}
