package vision

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// synsetPrefix идентификатор WordNet в начале строки ImageNet ("n01440764 tench, Tinca tinca")
var synsetPrefix = regexp.MustCompile(`^n\d{8}\s+`)

// LoadLabels читает файл меток, по одной на строку; индекс строки равен индексу класса
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		labels = append(labels, synsetPrefix.ReplaceAllString(line, ""))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// labelAt возвращает метку класса или запасное имя
func labelAt(labels []string, idx int) string {
	if idx >= 0 && idx < len(labels) && labels[idx] != "" {
		return labels[idx]
	}
	return fmt.Sprintf("class %d", idx)
}
