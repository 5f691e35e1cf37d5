// Package kafkaout sends encoded record batches to a Kafka topic via
// sarama, with optional SASL/SCRAM auth and optional batch compression.
package kafkaout

import (
	"context"
	"crypto/sha256"

	"ssw-logs-capture/pkg/compression"
	"ssw-logs-capture/pkg/pipeerr"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
	"github.com/xdg-go/scram"
)

// Config configures one Kafka output.
type Config struct {
	Name      string
	Brokers   []string
	Topic     string
	SASLUser  string
	SASLPass  string
	Algorithm compression.Algorithm
}

// Output is a Kafka producer for one topic.
type Output struct {
	config     Config
	producer   sarama.SyncProducer
	compressor *compression.Compressor
	logger     *logrus.Logger
}

// New dials brokers and constructs an Output. The returned Output owns the
// underlying sarama producer; call Close to release it.
func New(config Config, logger *logrus.Logger) (*Output, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5

	if config.SASLUser != "" {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = config.SASLUser
		saramaConfig.Net.SASL.Password = config.SASLPass
		saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = func() sarama.SCRAMClient {
			return &scramClient{HashGeneratorFcn: scramSHA256}
		}
	}

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.KindResource, pipeerr.CodeAllocationFailed, "kafkaout",
			"dialing brokers", err)
	}

	algorithm := config.Algorithm
	if algorithm == "" {
		algorithm = compression.AlgorithmNone
	}
	comp := compression.New(compression.Config{DefaultAlgorithm: algorithm})

	return &Output{config: config, producer: producer, compressor: comp, logger: logger}, nil
}

// Send compresses data per the output's configured algorithm and produces
// it as a single Kafka message. It is a blocking call intended to run on
// pkg/workerpool, not inline in the event loop.
func (o *Output) Send(ctx context.Context, tag string, data []byte) error {
	result, err := o.compressor.Compress(data, o.config.Algorithm, o.config.Name)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: o.config.Topic,
		Key:   sarama.StringEncoder(tag),
		Value: sarama.ByteEncoder(result.Data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-encoding"), Value: []byte(compression.ContentEncoding(result.Algorithm))},
		},
	}
	_, _, err = o.producer.SendMessage(msg)
	if err != nil {
		return pipeerr.Wrap(pipeerr.KindResource, pipeerr.CodeQueueOverflow, "kafkaout", "producing message", err)
	}
	return nil
}

// Close releases the underlying producer.
func (o *Output) Close() error {
	return o.producer.Close()
}

// scramSHA256 is the hash generator SCRAM-SHA-256 authentication uses.
var scramSHA256 scram.HashGeneratorFcn = sha256.New

// scramClient adapts xdg-go/scram to sarama's SCRAMClient interface.
type scramClient struct {
	*scram.Client
	*scram.ClientConversation
	scram.HashGeneratorFcn
}

func (c *scramClient) Begin(userName, password, authzID string) (err error) {
	c.Client, err = c.HashGeneratorFcn.NewClient(userName, password, authzID)
	if err != nil {
		return err
	}
	c.ClientConversation = c.Client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.ClientConversation.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.ClientConversation.Done()
}
