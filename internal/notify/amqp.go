package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

const QueueName = "notification_queue"

// AMQPNotifier 把状态变更通知投到消息队列，由 cmd/notifier 消费后发邮件。
// 投递是 fire-and-forget：失败只记日志，不重试，也不影响触发它的状态变更。
type AMQPNotifier struct {
	cfg     *config.Config
	channel *amqp.Channel
}

func NewAMQPNotifier(cfg *config.Config, channel *amqp.Channel) *AMQPNotifier {
	return &AMQPNotifier{
		cfg:     cfg,
		channel: channel,
	}
}

func (n *AMQPNotifier) publish(msg *domain.NotificationMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		slog.Error("无法序列化通知", "type", msg.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(n.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := n.channel.PublishWithContext(
		ctx,
		"",
		QueueName,
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		slog.Error("通知投递失败", "type", msg.Type, "to", msg.To, "error", err)
	}
}

func (n *AMQPNotifier) NotifyAssignment(staff *domain.Staff, shift *domain.Shift, event string) {
	n.publish(&domain.NotificationMessage{
		Type: "assignment",
		To:   staff.Email,
		Data: domain.AssignmentNotificationData{
			FullName:  staff.FullName,
			ShiftDate: shift.Date.Format("2006-01-02"),
			StartTime: shift.StartTime,
			EndTime:   shift.EndTime,
			Event:     event,
		},
	})
}

func (n *AMQPNotifier) NotifyRequest(staff *domain.Staff, req *domain.Request, event string) {
	n.publish(&domain.NotificationMessage{
		Type: "request",
		To:   staff.Email,
		Data: domain.RequestNotificationData{
			FullName:    staff.FullName,
			RequestType: string(req.Type),
			Event:       event,
			Notes:       req.ReviewNotes,
		},
	})
}
