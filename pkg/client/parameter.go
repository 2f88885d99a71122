package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrParameterNotFound is returned when a parameter is not found in the Parameter Store.
var ErrParameterNotFound = errors.New("parameter store: parameter not found")

// Parameter represents a simplified AWS parameter in the SSM Parameter Store.
type Parameter struct {
	// Name is the case-sensitive name of the parameter. The maximum usable length is 1011 characters.
	// Slashes are used to create a hierarchy of grouped parameters, for example: /civic/prod/MaxImageBytes
	Name string `json:"name"`

	// Value is the value of the parameter. The size limit is 4096 bytes.
	Value string `json:"value"`
}

// Key returns the last element of the parameter's hierarchical name.
func (p Parameter) Key() string {
	if i := strings.LastIndex(p.Name, "/"); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

// parameterCache is shared by copies of a ParameterStore.
type parameterCache struct {
	mu     sync.RWMutex
	params map[string]Parameter
}

func (c *parameterCache) get(name string) (Parameter, bool) {
	if c == nil {
		return Parameter{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.params[name]
	return p, ok
}

func (c *parameterCache) set(params ...Parameter) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range params {
		c.params[p.Name] = p
	}
}

func (c *parameterCache) delete(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.params, name)
}

func (c *parameterCache) clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params = map[string]Parameter{}
}

// withPrefix returns the cached parameters whose names begin with the prefix, sorted by name.
func (c *parameterCache) withPrefix(prefix string) []Parameter {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var params []Parameter
	for name, p := range c.params {
		if strings.HasPrefix(name, prefix) {
			params = append(params, p)
		}
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params
}

// ParameterStore is a caching client for AWS SSM Parameter Store. If the AWS SSM Client is not configured,
// the cache is still used as an in-memory parameter store, useful for testing purposes.
// Copies of a ParameterStore share the same cache, which is safe for concurrent use.
type ParameterStore struct {
	Client *ssm.Client
	cache  *parameterCache
}

// SetParameter sets the provided parameter in the cache and updates the AWS SSM Parameter Store.
func (ps ParameterStore) SetParameter(ctx context.Context, p Parameter) error {
	if p.Name == "" {
		return errors.New("parameter store: missing parameter name")
	}
	ps.cache.set(p)
	// If the client is not set, the parameter store is in-memory only.
	if ps.Client == nil {
		return nil
	}
	input := &ssm.PutParameterInput{
		Name:      &p.Name,
		Value:     &p.Value,
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	}
	_, err := ps.Client.PutParameter(ctx, input)
	if err != nil {
		return fmt.Errorf("parameter store: set parameter %s: %w", p.Name, err)
	}
	return nil
}

// GetParameter returns the provided parameter with the matching value.
func (ps ParameterStore) GetParameter(ctx context.Context, p Parameter) (Parameter, error) {
	if p.Name == "" {
		return p, errors.New("parameter store: missing parameter name")
	}
	if cached, ok := ps.cache.get(p.Name); ok {
		return cached, nil
	}
	if ps.Client == nil {
		return p, ErrParameterNotFound
	}
	input := &ssm.GetParameterInput{
		Name:           &p.Name,
		WithDecryption: aws.Bool(true), // ignored if the parameter is not encrypted
	}
	result, err := ps.Client.GetParameter(ctx, input)
	if err != nil {
		var nf *types.ParameterNotFound
		if errors.As(err, &nf) {
			return p, ErrParameterNotFound
		}
		return p, fmt.Errorf("parameter store: get parameter %s: %w", p.Name, err)
	}
	p.Value = aws.ToString(result.Parameter.Value)
	ps.cache.set(p)
	return p, nil
}

// GetParameters returns the provided parameters, in order, with their values populated.
// ErrParameterNotFound is returned along with the partial result if any parameter is missing.
func (ps ParameterStore) GetParameters(ctx context.Context, params []Parameter) ([]Parameter, error) {
	if len(params) == 0 {
		return nil, nil
	}
	fill := func() []string {
		var missing []string
		for i, p := range params {
			if c, ok := ps.cache.get(p.Name); ok {
				params[i].Value = c.Value
			} else {
				missing = append(missing, p.Name)
			}
		}
		return missing
	}
	missing := fill()
	if len(missing) == 0 {
		return params, nil
	}
	if ps.Client == nil {
		return params, ErrParameterNotFound
	}
	input := &ssm.GetParametersInput{
		Names:          missing,
		WithDecryption: aws.Bool(true),
	}
	result, err := ps.Client.GetParameters(ctx, input)
	if err != nil {
		return params, fmt.Errorf("parameter store: get parameters %v: %w", missing, err)
	}
	for _, p := range result.Parameters {
		ps.cache.set(Parameter{Name: aws.ToString(p.Name), Value: aws.ToString(p.Value)})
	}
	if len(fill()) > 0 {
		return params, ErrParameterNotFound
	}
	return params, nil
}

// GetParametersByPath returns every parameter below the provided path (e.g. /civic/prod),
// sorted by name. An empty result is not an error.
func (ps ParameterStore) GetParametersByPath(ctx context.Context, path string) ([]Parameter, error) {
	path = "/" + strings.Trim(path, "/")
	if path == "/" {
		return nil, errors.New("parameter store: missing parameter path")
	}
	if ps.Client == nil {
		return ps.cache.withPrefix(path + "/"), nil
	}
	paginator := ssm.NewGetParametersByPathPaginator(ps.Client, &ssm.GetParametersByPathInput{
		Path:           &path,
		Recursive:      aws.Bool(true),
		WithDecryption: aws.Bool(true),
	})
	var params []Parameter
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return params, fmt.Errorf("parameter store: get parameters by path %s: %w", path, err)
		}
		for _, p := range page.Parameters {
			params = append(params, Parameter{Name: aws.ToString(p.Name), Value: aws.ToString(p.Value)})
		}
	}
	ps.cache.set(params...)
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	return params, nil
}

// DeleteParameter deletes the provided parameter from the cache and the AWS SSM Parameter Store.
func (ps ParameterStore) DeleteParameter(ctx context.Context, p Parameter) error {
	if p.Name == "" {
		return errors.New("parameter store: missing parameter name")
	}
	ps.cache.delete(p.Name)
	if ps.Client == nil {
		return nil
	}
	input := &ssm.DeleteParameterInput{
		Name: &p.Name,
	}
	_, err := ps.Client.DeleteParameter(ctx, input)
	if err != nil {
		return fmt.Errorf("parameter store: delete parameter %s: %w", p.Name, err)
	}
	return nil
}

// IsConfigured reports whether the store has an SSM client or an in-memory cache.
func (ps ParameterStore) IsConfigured() bool {
	return ps.Client != nil || ps.cache != nil
}

// ClearCache empties the cache. With an SSM client, subsequent reads go back to AWS.
func (ps ParameterStore) ClearCache() {
	ps.cache.clear()
}

// NewParameterStore returns a new caching ParameterStore, backed by AWS SSM Parameter Store.
func NewParameterStore(cfg aws.Config) ParameterStore {
	return ParameterStore{
		Client: ssm.NewFromConfig(cfg),
		cache:  &parameterCache{params: map[string]Parameter{}},
	}
}

// NewParameterStoreMock returns a new mock parameter store, with in-memory parameter caching.
func NewParameterStoreMock() ParameterStore {
	return ParameterStore{
		cache: &parameterCache{params: map[string]Parameter{}},
	}
}
