package jobs

import (
	"log"
	"time"

	"coinwatch/ingest"
)

// StartHeartbeatWatchdog runs the stale-machine sweep on a fixed interval,
// independent of request traffic. Machines lose power ungracefully in the
// field; this is what eventually marks them inactive.
func StartHeartbeatWatchdog(svc *ingest.Service) {
	ticker := time.NewTicker(svc.Cfg.HeartbeatInterval)
	go func() {
		for {
			<-ticker.C
			if err := svc.SweepStale(); err != nil {
				log.Printf("❌ Heartbeat sweep failed: %v", err)
			}
		}
	}()
}
