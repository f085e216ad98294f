package rules

import (
	"bytes"
	"os"
)

// Client provides rule configuration to the routing table, either once or
// with updates when the underlying source changes.
type Client interface {

	// LoadAll returns the full parsed configuration.
	LoadAll() (*Config, error)

	// LoadUpdate returns the full configuration again when the source has
	// changed since the last load. The second return value reports whether
	// there was a change.
	LoadUpdate() (*Config, bool, error)
}

type watchResponse struct {
	config  *Config
	changed bool
	err     error
}

// WatchClient implements Client with file watching. Use the Watch function
// to initialize instances of it. It doesn't follow file system nodes, it
// always reads from the file identified by the initially provided name.
type WatchClient struct {
	fileName   string
	lastSeen   []byte
	getAll     chan (chan<- watchResponse)
	getUpdates chan (chan<- watchResponse)
	quit       chan struct{}
}

// Watch creates a rule configuration client watching the named file.
func Watch(name string) *WatchClient {
	c := &WatchClient{
		fileName:   name,
		getAll:     make(chan (chan<- watchResponse)),
		getUpdates: make(chan (chan<- watchResponse)),
		quit:       make(chan struct{}),
	}

	go c.watch()
	return c
}

func (c *WatchClient) loadAll() watchResponse {
	content, err := os.ReadFile(c.fileName)
	if err != nil {
		return watchResponse{err: err}
	}

	config, err := Parse(content)
	if err != nil {
		return watchResponse{err: err}
	}

	c.lastSeen = content
	return watchResponse{config: config, changed: true}
}

func (c *WatchClient) loadUpdates() watchResponse {
	content, err := os.ReadFile(c.fileName)
	if err != nil {
		return watchResponse{err: err}
	}

	if bytes.Equal(content, c.lastSeen) {
		return watchResponse{}
	}

	config, err := Parse(content)
	if err != nil {
		return watchResponse{err: err}
	}

	c.lastSeen = content
	return watchResponse{config: config, changed: true}
}

func (c *WatchClient) watch() {
	for {
		select {
		case req := <-c.getAll:
			req <- c.loadAll()
		case req := <-c.getUpdates:
			req <- c.loadUpdates()
		case <-c.quit:
			return
		}
	}
}

// LoadAll returns the parsed rule configuration found in the file.
func (c *WatchClient) LoadAll() (*Config, error) {
	req := make(chan watchResponse)
	c.getAll <- req
	rsp := <-req
	return rsp.config, rsp.err
}

// LoadUpdate returns the reparsed configuration when the watched file has
// changed.
func (c *WatchClient) LoadUpdate() (*Config, bool, error) {
	req := make(chan watchResponse)
	c.getUpdates <- req
	rsp := <-req
	return rsp.config, rsp.changed, rsp.err
}

// Close stops watching the configured file and providing updates.
func (c *WatchClient) Close() {
	close(c.quit)
}

// FileClient implements Client with a single load and no updates.
type FileClient struct {
	fileName string
}

// Open creates a rule configuration client reading the named file once.
func Open(name string) *FileClient {
	return &FileClient{fileName: name}
}

func (c *FileClient) LoadAll() (*Config, error) {
	return ParseFile(c.fileName)
}

func (c *FileClient) LoadUpdate() (*Config, bool, error) {
	return nil, false, nil
}

type emptyClient struct{}

// Empty creates a client with an empty rule configuration, used when no
// rule file is configured.
func Empty() Client {
	return emptyClient{}
}

func (emptyClient) LoadAll() (*Config, error)          { return &Config{}, nil }
func (emptyClient) LoadUpdate() (*Config, bool, error) { return nil, false, nil }
