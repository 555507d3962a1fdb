package services

import (
	"fmt"
	"math/rand"
)

// 邀请码与随机英文名生成。两者共用同一套"生成-查重-重试"模式：
// 探测函数由调用方注入，超过尝试上限仍冲突则报错。

// 邀请码默认参数
const (
	InviteCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ" // 仅大写字母
	InviteCodeLength      = 6
	InviteCodeMaxAttempts = 10
)

// ExistsFunc 查重探测函数，返回候选值是否已被占用
type ExistsFunc func(candidate string) (bool, error)

// 随机英文名候选（常见短名前缀与后缀）
var namePrefixes = []string{
	"Alex", "Ben", "Chris", "Dan", "Ed", "Finn", "Gus", "Hank", "Ian", "Jack",
	"Kai", "Leo", "Max", "Nick", "Owen", "Paul", "Quinn", "Ray", "Sam", "Tom",
	"Vic", "Will", "Zack", "Ace", "Blake", "Cole", "Drew", "Evan", "Felix", "Gabe",
	"Hugo", "Ivan", "Jake", "Kyle", "Luke", "Miles", "Noah", "Oscar", "Pete",
	"Ryan", "Sean", "Troy", "Vince", "Wade", "Xavi", "Yuki", "Zane",
}

var nameSuffixes = []string{
	"son", "ton", "ley", "man", "er", "an", "in", "on", "en", "ar",
	"or", "ic", "al", "el", "ie", "ey", "ay", "oy", "ly", "ry",
}

// RandomCode 从给定字符集生成定长随机码
func RandomCode(alphabet string, length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}

// GenerateUniqueCode 生成唯一随机码：反复生成并用checkExists查重，
// maxAttempts次内未找到唯一值则返回错误。
func GenerateUniqueCode(alphabet string, length, maxAttempts int, checkExists ExistsFunc) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code := RandomCode(alphabet, length)
		exists, err := checkExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("无法生成唯一邀请码，请重试")
}

// GenerateUniqueInviteCode 生成唯一邀请码（默认6位大写字母，10次重试）
func GenerateUniqueInviteCode(checkExists ExistsFunc) (string, error) {
	return GenerateUniqueCode(InviteCodeAlphabet, InviteCodeLength, InviteCodeMaxAttempts, checkExists)
}

// RandomName 生成随机短英文名（3-8个字母）
func RandomName() string {
	prefix := namePrefixes[rand.Intn(len(namePrefixes))]

	// 一半概率直接使用短名，一半概率拼接后缀
	if rand.Intn(2) == 0 {
		return prefix
	}
	combined := prefix + nameSuffixes[rand.Intn(len(nameSuffixes))]
	if len(combined) > 8 {
		return prefix
	}
	return combined
}

// GenerateUniqueName 生成唯一随机英文名。maxAttempts次内都冲突时
// 退化为"名字+随机数字后缀"，不再查重。
func GenerateUniqueName(maxAttempts int, checkExists ExistsFunc) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		name := RandomName()
		exists, err := checkExists(name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
	}
	return fmt.Sprintf("%s%d", RandomName(), rand.Intn(1000)), nil
}
