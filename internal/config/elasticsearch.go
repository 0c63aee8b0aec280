package config

// ElasticsearchConfig содержит конфигурацию подключения к Elasticsearch
type ElasticsearchConfig struct {
	Enabled    bool
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
}
