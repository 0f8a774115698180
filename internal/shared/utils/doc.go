// Package utils validates operator input before it reaches the backend.
package utils
