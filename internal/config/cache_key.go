package config

import "fmt"

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizProgressKey returns the storage key for a quiz's local progress snapshot.
func (r *CacheKeyStruct) QuizProgressKey(quizID string) string {
	return fmt.Sprintf("quiz_progress_%s", quizID)
}

// RedisProgressKey namespaces a progress key inside a shared Redis database.
func (r *CacheKeyStruct) RedisProgressKey(key string) string {
	return fmt.Sprintf("player:%s", key)
}

var CacheKey = NewCacheKeyStruct()
