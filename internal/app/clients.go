package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/counselbridge-backend/internal/clients/mailservice"
	"github.com/yungbote/counselbridge-backend/internal/clients/rabbitmq"
	"github.com/yungbote/counselbridge-backend/internal/clients/redis"
	"github.com/yungbote/counselbridge-backend/internal/clients/rocketchat"
	"github.com/yungbote/counselbridge-backend/internal/platform/logger"
	"github.com/yungbote/counselbridge-backend/internal/services"
)

type Clients struct {
	RocketChat rocketchat.Client
	Mail       mailservice.Client
	// Statistics is nil when STATISTICS_ENABLED is off.
	Statistics rabbitmq.StatisticsPublisher
	RoomLocker services.RoomLocker

	closers []func() error
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Rocket.Chat
	rc, err := rocketchat.New(log, cfg.rocketChatConfig())
	if err != nil {
		return Clients{}, fmt.Errorf("init rocket.chat client: %w", err)
	}
	out.RocketChat = rc

	// Mail service
	mail, err := mailservice.New(log, cfg.mailConfig())
	if err != nil {
		return Clients{}, fmt.Errorf("init mail service client: %w", err)
	}
	out.Mail = mail

	// Redis
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		locker, err := redis.NewRoomLocker(log, cfg.redisConfig())
		if err != nil {
			return Clients{}, fmt.Errorf("init redis room locker: %w", err)
		}
		out.RoomLocker = locker
		out.closers = append(out.closers, locker.Close)
	} else {
		log.Warn("REDIS_ADDR not set, room locks are process-local")
		out.RoomLocker = services.NewLocalRoomLocker()
	}

	// RabbitMQ
	if cfg.Statistics.Enabled {
		pub, err := rabbitmq.NewStatisticsPublisher(log, cfg.rabbitConfig())
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init statistics publisher: %w", err)
		}
		out.Statistics = pub
		out.closers = append(out.closers, pub.Close)
	}

	return out, nil
}

func (c Clients) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
}
