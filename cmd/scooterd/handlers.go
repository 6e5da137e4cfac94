package main

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"scooterble/session"
)

// gateway holds the one Session every handler is bound to. Grounded on the
// teacher's Orchestrator receiver pattern for its handleXxx methods.
type gateway struct {
	session *session.Session
	logger  *log.Logger
}

func (g *gateway) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *gateway) handleBattery(c *gin.Context) {
	basic, err := g.session.BatteryBasic(c.Request.Context())
	if g.fail(c, err) {
		return
	}
	serial, err := g.session.BatterySerial(c.Request.Context())
	if g.fail(c, err) {
		return
	}
	cells, err := g.session.CellVoltages(c.Request.Context())
	if g.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"capacity_mah":     basic.CapacityMah,
		"percent_charged":  basic.PercentCharged,
		"current_centi_a":  basic.CurrentCentiA,
		"voltage_centi_v":  basic.VoltageCentiV,
		"temperature_1_c":  basic.Temperature1C,
		"temperature_2_c":  basic.Temperature2C,
		"serial":           serial.Serial,
		"manufacture_year": serial.ManufactureYear,
		"manufacture_mon":  serial.ManufactureMon,
		"manufacture_day":  serial.ManufactureDay,
		"cell_voltages_mv": cells,
	})
}

func (g *gateway) handleMotor(c *gin.Context) {
	status, err := g.session.MotorStatus(c.Request.Context())
	if g.fail(c, err) {
		return
	}
	km, err := g.session.RemainingKm(c.Request.Context())
	if g.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"error_code":       status.Error,
		"warning_code":     status.Warning,
		"flags":            status.Flags,
		"work_mode":        status.WorkMode,
		"battery_percent":  status.BatteryPercent,
		"speed_kmh":        status.SpeedKmh,
		"avg_speed_kmh":    status.AvgSpeedKmh,
		"total_distance_m": status.TotalDistanceM,
		"uptime_s":         status.UptimeS,
		"temperature_c":    status.TemperatureC,
		"remaining_km":     km,
	})
}

type cruiseRequest struct {
	Enabled bool `json:"enabled"`
}

func (g *gateway) handleCruiseWrite(c *gin.Context) {
	var req cruiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if g.fail(c, g.session.CruiseWrite(c.Request.Context(), req.Enabled)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}

type tailLightRequest struct {
	On bool `json:"on"`
}

func (g *gateway) handleTailLightWrite(c *gin.Context) {
	var req tailLightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if g.fail(c, g.session.TailLightWrite(c.Request.Context(), req.On)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"on": req.On})
}

type kersRequest struct {
	Level uint16 `json:"level"`
}

func (g *gateway) handleKersWrite(c *gin.Context) {
	var req kersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := g.session.KersWrite(c.Request.Context(), session.KersLevel(req.Level))
	if errors.Is(err, session.ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if g.fail(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": req.Level})
}

// fail writes a 502 response and reports true if err is non-nil.
func (g *gateway) fail(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	g.logger.Printf("request failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	return true
}
