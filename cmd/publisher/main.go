package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type cellTower struct {
	MCC            int64   `json:"mcc"`
	MNC            int64   `json:"mnc"`
	LAC            int64   `json:"lac"`
	CellID         int64   `json:"cell_id"`
	SignalStrength float64 `json:"signal_strength"`
}

type observation struct {
	Source     string       `json:"source,omitempty"`
	Latitude   *float64     `json:"latitude,omitempty"`
	Longitude  *float64     `json:"longitude,omitempty"`
	Accuracy   *float64     `json:"accuracy,omitempty"`
	Speed      *float64     `json:"speed,omitempty"`
	CellTowers []cellTower  `json:"cell_towers,omitempty"`
	GPS        *observation `json:"gps_data,omitempty"`
	BTS        *observation `json:"bts_data,omitempty"`
}

type locationMessage struct {
	DeviceID string `json:"device_id"`
	observation
	BatteryLevel int `json:"battery_level"`
}

// Jakarta, next to the demo geofence.
const (
	homeLat = -6.2088
	homeLon = 106.8456
)

func ptr(f float64) *float64 { return &f }

func gpsObservation() *observation {
	// ~1km drift so devices cross a 500m geofence now and then.
	lat := homeLat + (rand.Float64()-0.5)*0.02
	lon := homeLon + (rand.Float64()-0.5)*0.02
	return &observation{
		Source:    "GPS",
		Latitude:  &lat,
		Longitude: &lon,
		Accuracy:  ptr(3 + rand.Float64()*10),
		Speed:     ptr(rand.Float64() * 15),
	}
}

func btsObservation() *observation {
	n := 1 + rand.Intn(4)
	towers := make([]cellTower, n)
	for i := range towers {
		towers[i] = cellTower{
			MCC:            510,
			MNC:            10,
			LAC:            int64(1000 + rand.Intn(50)),
			CellID:         int64(10000 + rand.Intn(5000)),
			SignalStrength: -60 - rand.Float64()*40,
		}
	}
	return &observation{Source: "BTS", CellTowers: towers}
}

func randomObservation() observation {
	switch r := rand.Float64(); {
	case r < 0.6:
		return *gpsObservation()
	case r < 0.8:
		return *btsObservation()
	default:
		// fusion: no source tag, both sub-payloads
		gps, bts := gpsObservation(), btsObservation()
		gps.Source, bts.Source = "", ""
		return observation{GPS: gps, BTS: bts}
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("tracking-mock-device-" + uuid.NewString()[:8])

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	devicePool := make([]string, 5)
	for i := range devicePool {
		devicePool[i] = "phone-" + uuid.NewString()[:8]
	}

	log.Printf("connected to %s, publishing every %ds...", broker, intervalSec)
	log.Printf("device pool: %v", devicePool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		did := devicePool[rand.Intn(len(devicePool))]

		msg := locationMessage{
			DeviceID:     did,
			observation:  randomObservation(),
			BatteryLevel: 20 + rand.Intn(81),
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("/tracking/device/%s/location", did)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
