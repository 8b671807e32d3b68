package cache

import (
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/blerf"
)

type profileCache struct {
	filename string
	lock     sync.RWMutex
}

// New returns a profile store backed by a JSON file.
func New(filename string) blerf.ProfileStore {
	pc := profileCache{
		filename: filename,
	}

	return &pc
}

func (pc *profileCache) Store(name string, p blerf.Profile, replace bool) error {
	if err := p.Validate(); err != nil {
		return err
	}

	pc.lock.Lock()
	defer pc.lock.Unlock()

	cache, err := pc.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[name]
	if ok && !replace {
		return fmt.Errorf("cache already contains profile %s", name)
	}

	cache[name] = p

	return pc.storeCache(cache)
}

func (pc *profileCache) Load(name string) (blerf.Profile, error) {
	pc.lock.RLock()
	defer pc.lock.RUnlock()

	cache, err := pc.loadExisting()
	if err != nil {
		return blerf.Profile{}, err
	}

	p, ok := cache[name]
	if !ok {
		return blerf.Profile{}, fmt.Errorf("profile %s not found in cache", name)
	}

	return p, nil
}

func (pc *profileCache) Names() ([]string, error) {
	pc.lock.RLock()
	defer pc.lock.RUnlock()

	cache, err := pc.loadExisting()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cache))
	for n := range cache {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (pc *profileCache) Clear() error {
	pc.lock.Lock()
	defer pc.lock.Unlock()

	err := os.Remove(pc.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (pc *profileCache) loadExisting() (map[string]blerf.Profile, error) {
	_, err := os.Stat(pc.filename)
	if os.IsNotExist(err) {
		return map[string]blerf.Profile{}, nil
	}

	in, err := ioutil.ReadFile(pc.filename)
	if err != nil {
		return nil, err
	}

	var cache map[string]blerf.Profile
	err = jsoniter.Unmarshal(in, &cache)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		cache = map[string]blerf.Profile{}
	}

	return cache, nil
}

func (pc *profileCache) storeCache(cache map[string]blerf.Profile) error {
	out, err := jsoniter.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(pc.filename, out, 0644)
}
