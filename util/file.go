package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// takes a save path and a variable number of strings and writes them to file separated by new lines
func WriteToFile(savePath string, content ...string) error {
	singleString := ""
	for i, c := range content {
		if i > 0 {
			singleString += "\n"
		}
		singleString = fmt.Sprintf("%s%s", singleString, c)
	}

	if err := os.MkdirAll(filepath.Dir(savePath), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(savePath, []byte(singleString+"\n"), 0644)
}

// appends each string as a line, creating the file if needed
func AppendToFile(savePath string, content ...string) error {
	f, err := os.OpenFile(savePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}

	defer f.Close()

	for _, s := range content {
		if _, err = f.WriteString(s + "\n"); err != nil {
			return err
		}
	}
	return nil
}
