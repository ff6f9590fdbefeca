package config

// QueueConfig holds RabbitMQ settings for task activity events.  Events
// are only published when a broker URL is configured.
type QueueConfig struct {
	Enabled     bool
	URL         string
	Queue       string
	ActivityLog string
	Buffer      int // events waiting for delivery before new ones are dropped
}

// LoadQueueConfig reads RABBITMQ_URL (or AMQP_URL) and TASK_EVENTS_QUEUE.
func LoadQueueConfig() QueueConfig {
	url := envStr("RABBITMQ_URL", envStr("AMQP_URL", ""))
	return QueueConfig{
		Enabled:     url != "" && envBool("EVENTS_ENABLED", true),
		URL:         url,
		Queue:       envStr("TASK_EVENTS_QUEUE", "task.events"),
		ActivityLog: envStr("ACTIVITY_LOG_PATH", "logs/activity.log"),
		Buffer:      envInt("EVENTS_BUFFER", 256),
	}
}
