package kafka

import (
	"errors"
	"strings"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/mq"
	"DeskLink/pkg/zlog"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type PublisherConfig struct {
	Brokers  []string
	ClientID string
}

// saramaPublisher 异步生产者。审计链路是火忘式的，
// 发送失败只记日志，绝不阻塞业务请求路径。
type saramaPublisher struct {
	p    sarama.AsyncProducer
	done chan struct{}
}

func NewSaramaPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}

	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	sc.Producer.Return.Successes = false
	sc.Producer.Return.Errors = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.ClientID = strings.TrimSpace(cfg.ClientID)

	p, err := sarama.NewAsyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}

	pub := &saramaPublisher{p: p, done: make(chan struct{})}
	go pub.drainErrors()
	return pub, nil
}

func (s *saramaPublisher) drainErrors() {
	defer close(s.done)
	for perr := range s.p.Errors() {
		zlog.Warn("kafka audit publish failed",
			zap.String("topic", perr.Msg.Topic), zap.Error(perr.Err))
	}
}

func (s *saramaPublisher) Publish(msg mq.Message) {
	if strings.TrimSpace(msg.Topic) == "" {
		return
	}

	m := &sarama.ProducerMessage{
		Topic: msg.Topic,
		Key:   sarama.ByteEncoder(msg.Key),
		Value: sarama.ByteEncoder(msg.Value),
	}
	if len(msg.Headers) > 0 {
		m.Headers = make([]sarama.RecordHeader, 0, len(msg.Headers))
		for k, v := range msg.Headers {
			kk := strings.TrimSpace(k)
			if kk == "" {
				continue
			}
			m.Headers = append(m.Headers, sarama.RecordHeader{
				Key:   []byte(kk),
				Value: []byte(v),
			})
		}
	}

	// 队列打满宁可丢审计也不阻塞请求
	select {
	case s.p.Input() <- m:
	default:
		zlog.Warn("kafka audit queue full, message dropped",
			zap.String("topic", msg.Topic))
	}
}

func (s *saramaPublisher) Close() error {
	if s == nil || s.p == nil {
		return nil
	}
	err := s.p.Close()
	<-s.done
	return err
}
